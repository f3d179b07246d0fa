package processor

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogProcessor writes due states to the logrus standard logger at Info level.
type LogProcessor[S any] struct {
	counter
	label  string
	format func(S) string
}

// NewLogProcessor creates a log processor. A nil format prints states with %v.
func NewLogProcessor[S any](label string, sampling Sampling, format func(S) string) (*LogProcessor[S], error) {
	if err := sampling.Validate(); err != nil {
		return nil, err
	}
	if format == nil {
		format = func(s S) string { return fmt.Sprint(s) }
	}
	return &LogProcessor[S]{counter: counter{sampling: sampling}, label: label, format: format}, nil
}

func (p *LogProcessor[S]) Start() error {
	p.reset()
	return nil
}

func (p *LogProcessor[S]) ProcessState(state S) error {
	if index, ok := p.tick(); ok {
		logrus.Infof("[%s %09d] %s", p.label, index, p.format(state))
	}
	return nil
}

func (p *LogProcessor[S]) End() error { return nil }
