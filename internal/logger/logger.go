package logger

import (
	"go-regula/internal/config"

	"go.uber.org/zap"
)

// NewLogger builds the application logger. Production uses JSON output;
// everything else gets the development console encoder.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Important: Enable Caller to get Function Name
	zapConfig.EncoderConfig.FunctionKey = "func"

	logger, err := zapConfig.Build(zap.AddCaller())
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("app", cfg.AppId)), nil
}
