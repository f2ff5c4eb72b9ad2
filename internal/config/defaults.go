package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7863
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "/usr/local/var/miwake/data/icon_embeddings.csv"
	}
	if cfg.Extract.DefaultMethod == "" {
		cfg.Extract.DefaultMethod = "dinov2"
	}
	if len(cfg.Extract.Methods) == 0 {
		cfg.Extract.Methods = []MethodConfig{
			{Name: "vit", ModelPath: "/usr/local/var/miwake/models/vit-base-patch16-224.onnx"},
			{Name: "dinov2", ModelPath: "/usr/local/var/miwake/models/dinov2-base.onnx"},
		}
	}
	for i := range cfg.Extract.Methods {
		if cfg.Extract.Methods[i].Dimensions == 0 {
			cfg.Extract.Methods[i].Dimensions = 768
		}
		if cfg.Extract.Methods[i].ImageSize == 0 {
			cfg.Extract.Methods[i].ImageSize = 224
		}
	}
	if cfg.Classify.RecommendedThreshold == 0 {
		cfg.Classify.RecommendedThreshold = 0.65
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".jpg", ".jpeg", ".png"}
	}
}
