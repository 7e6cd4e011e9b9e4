package loader

import "github.com/liquidgo/liquid/parser"

// ChoiceLoader tries each underlying loader in order, returning the first
// hit (spec §4.7's loader chaining; grounded on the original implementation's
// ChoiceLoader). Useful for layering a theme override directory in front of
// a shared defaults directory.
type ChoiceLoader struct {
	loaders []Loader
}

func NewChoiceLoader(loaders ...Loader) *ChoiceLoader {
	return &ChoiceLoader{loaders: loaders}
}

func (c *ChoiceLoader) Source(name string) (string, error) {
	var lastErr error
	for _, l := range c.loaders {
		src, err := l.Source(name)
		if err == nil {
			return src, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &NotFoundError{Name: name}
	}
	return "", lastErr
}

func (c *ChoiceLoader) Load(name string) (*parser.Template, error) {
	var lastErr error
	for _, l := range c.loaders {
		tmpl, err := l.Load(name)
		if err == nil {
			return tmpl, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &NotFoundError{Name: name}
	}
	return nil, lastErr
}
