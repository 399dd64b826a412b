// Package sink contains destinations for workflow events.
package sink

import (
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
)

// New builds the sink selected by the configuration.
func New(cfg Config) (interfaces.EventSink, error) {
	switch lang.Check(cfg.Type, TypeFile) {
	case TypeFile:
		return NewFile(cfg.File), nil
	case TypeHTTP:
		return NewHTTP(cfg.HTTP)
	case TypeBoth:
		remote, err := NewHTTP(cfg.HTTP)
		if err != nil {
			return nil, err
		}
		return Multi{NewFile(cfg.File), remote}, nil
	default:
		return nil, errm.Errorf("unsupported sink type: %s", cfg.Type)
	}
}
