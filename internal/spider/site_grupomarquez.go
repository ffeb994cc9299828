package spider

func newGrupomarquez() *Site {
	sel := Selectors{
		MenuItems: Chain{`//*[@id="menu-width"]//a`},

		ProductLinks: Chain{`//*[@id="body"]/div/div/div[2]/div/div/div[2]/ul/li//a/@href`},

		ProductName:   Chain{`//*[@id="body"]/div/div[3]/div[3]/h1/text()`},
		ProductPrice:  Chain{`//*[@id="final_price"]/text()`},
		ProductImages: Chain{`//*[@id="g_image"]//img/@src`},
		AttrRows:      Chain{`//*[@id="tab-especs"]/div/div/div/table//tr[th and td]`},
		AttrKey:       Chain{`.//th//text()`},
		AttrValue:     Chain{`./td/text()`},
		BrandLabel:    "Marca",
	}

	return &Site{
		Name:          "grupomarquez",
		AllowedDomain: "grupomarquez.com.ar",
		EntryPoints:   []EntryPoint{{URL: "https://grupomarquez.com.ar"}},
		Selectors:     sel,
		Pagination:    true,
		UseBrowser:    true,
		NextPageFunc:  rodoNextPage,
		IgnoredURLs:   []string{"/list/Add/Compare"},
	}
}
