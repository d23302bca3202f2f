// Package demo holds the components served by `openwire serve`.
package demo

import (
	"github.com/pthm/openwire"
)

// Init registers the demo components and blocks. Templates found in src
// override the built-in markup; src may be nil.
func Init(reg *openwire.Registry, src openwire.TemplateSource) {
	reg.Component(CounterAlias, func() openwire.Wireable { return NewCounter(src) })
	reg.Alias("counter", CounterAlias)
	reg.Component(ClockAlias, func() openwire.Wireable { return NewClock(src) })
	reg.Alias("clock", ClockAlias)
	reg.Component(TodoAlias, func() openwire.Wireable { return NewTodoList() })
	reg.Alias("todo", TodoAlias)
	reg.Block(PriceAlias, func() openwire.Block { return NewPriceBlock(DefaultPrices) })
}

// useTemplate sets c's template from src when src has name, else from
// fallback.
func useTemplate(c *openwire.Component, src openwire.TemplateSource, name, fallback string) {
	if src != nil {
		if _, ok := src.Get(name); ok {
			c.TemplateFrom(src, name)
			return
		}
	}
	c.Template(fallback)
}
