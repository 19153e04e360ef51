package control

import (
	"strconv"

	"github.com/gregoryv/web"
	. "github.com/gregoryv/web"
)

const pageTitle = "Access point status"

func statusPage(count int64) *web.Page {
	return NewFile("index.html",
		Html(
			Head(
				Title(pageTitle),
				Style(pageTheme()),
			),
			Body(
				H1(pageTitle),
				P(
					"Connected devices: ",
					Span(Class("count"), strconv.FormatInt(count, 10)),
				),
				P(
					Button(Class("led"), Attr("onclick", "fetch('/led/on')"), AckOn),
					Button(Class("led"), Attr("onclick", "fetch('/led/off')"), AckOff),
				),
			),
		),
	)
}

func pageTheme() *web.CSS {
	css := web.NewCSS()
	css.Style("body",
		"font-family: sans-serif",
		"margin: 2em",
	)
	css.Style(".count",
		"font-weight: bold",
	)
	css.Style(".led",
		"margin-right: .6em",
		"padding: .4em 1.2em",
	)
	return css
}
