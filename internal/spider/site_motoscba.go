package spider

func newMotoscba() *Site {
	sel := gaonaSelectors("8")
	sel.DiscountText = Chain{`//*[@id="pills"]/div/div/p/span/text()`}

	return &Site{
		Name:          "motoscba",
		AllowedDomain: "motoscba.com.ar",
		EntryPoints:   []EntryPoint{{URL: "https://motoscba.com.ar"}},
		Selectors:     sel,
		Pagination:    true,
		UseBrowser:    true,
	}
}
