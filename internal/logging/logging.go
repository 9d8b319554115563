package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/config"
)

var (
	Module = fx.Options(
		fx.Provide(
			NewLogger,
			NewSugared,
		),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)
)

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "parse log level")
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	l, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return l, nil
}

func NewSugared(l *zap.Logger) *zap.SugaredLogger {
	return l.Sugar()
}
