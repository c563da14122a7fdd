package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/linesight/data/linesight.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/linesight/data/vectors.idx"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://integrate.api.nvidia.com/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nvidia/nv-embedqa-e5-v5"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1024
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 10
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 10
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Completion.BaseURL == "" {
		cfg.Completion.BaseURL = "https://integrate.api.nvidia.com/v1"
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "meta/llama-3.1-70b-instruct"
	}
	if cfg.Completion.Temperature == 0 {
		cfg.Completion.Temperature = 0.3
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 1024
	}
	if cfg.Completion.TimeoutSeconds == 0 {
		cfg.Completion.TimeoutSeconds = 30
	}
	if cfg.Replay.EscalateRatePct == 0 {
		cfg.Replay.EscalateRatePct = 3.0
	}
	if cfg.Replay.RecoverRatePct == 0 {
		cfg.Replay.RecoverRatePct = 2.0
	}
	if cfg.Replay.RateWindowMinutes == 0 {
		cfg.Replay.RateWindowMinutes = 15
	}
	if cfg.Replay.TierDwellMinutes == 0 {
		cfg.Replay.TierDwellMinutes = 15
	}
	if cfg.Replay.RecoveryWindowMinutes == 0 {
		cfg.Replay.RecoveryWindowMinutes = 20
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 4
	}
	if cfg.Query.WindowHours == 0 {
		cfg.Query.WindowHours = 1
	}
	if cfg.Query.MinUniqueSources == 0 {
		cfg.Query.MinUniqueSources = 3
	}
	if cfg.Sensor.TempWarningC == 0 {
		cfg.Sensor.TempWarningC = 185.0
	}
	if cfg.Sensor.TempCriticalC == 0 {
		cfg.Sensor.TempCriticalC = 195.0
	}
	if cfg.Sensor.PressureWarningBar == 0 {
		cfg.Sensor.PressureWarningBar = 2.8
	}
	if cfg.Sensor.PressureCriticalBar == 0 {
		cfg.Sensor.PressureCriticalBar = 2.0
	}
	if cfg.Sensor.NominalLineSpeedMPM == 0 {
		cfg.Sensor.NominalLineSpeedMPM = 45.0
	}
	if cfg.Sensor.NominalPressureBar == 0 {
		cfg.Sensor.NominalPressureBar = 3.2
	}
	if cfg.Sensor.NominalCoolantFlowPct == 0 {
		cfg.Sensor.NominalCoolantFlowPct = 98.0
	}
	if cfg.Sensor.BaselineDefectRatePct == 0 {
		cfg.Sensor.BaselineDefectRatePct = 2.0
	}
}
