package features

// DefaultConfig is the listing feature config the price model is trained
// with: the listing attributes are one-hot expanded and the asking price is
// standardized after IQR outlier removal.
func DefaultConfig() Config {
	return Config{
		SelectCols: []string{"condition", "location", "model", "model_type", "price"},
		Impute: &ImputeStep{
			Strategy:  ImputeConstant,
			Cols:      []string{"model", "model_type"},
			FillValue: "__NA__",
		},
		Outlier: &OutlierStep{
			Method: OutlierIQR,
			Cols:   []string{"price"},
		},
		OneHot: &OneHotStep{
			Cols: []string{"condition", "location", "model", "model_type"},
		},
		Scale: &ScaleStep{
			Cols:   []string{"price"},
			Method: ScaleStandard,
		},
	}.WithDefaults()
}
