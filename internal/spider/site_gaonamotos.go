package spider

// gaonaSelectors adapts the MercadoShops map to shops whose popover menu
// sits outside the nav list. The union selector treats popover entries as
// additional top-level menu items.
func gaonaSelectors(footerColumn string) Selectors {
	sel := mercadoShopsSelectors()
	sel.MenuItems = Chain{`//*[@id="nav-list"]/li | //*[@id="nav-popover-list"]//li`}
	sel.MenuLink = Chain{`./a`}
	sel.Submenu = nil
	sel.SubLinks = nil

	footer := `//*[@id="footer-container"]/footer/div[1]/div/div/div[` + footerColumn + `]`
	sel.SourceLogo = Chain{`//*[@id="logo-wrapper"]/img/@src`}
	sel.SourceAddress = Chain{Selector(footer + `/ul/li[3]/a/text()`)}
	sel.SourceFacebook = Chain{Selector(footer + `/div/a[1]/@href`)}
	sel.SourceInstagram = Chain{Selector(footer + `/div/a[2]/@href`)}
	sel.SourcePhone = Chain{Selector(footer + `/ul/li[1]/a/text()`)}
	sel.SourceEmail = Chain{Selector(footer + `/ul/li[2]/a/text()`)}
	return sel
}

func newGaonamotos() *Site {
	return &Site{
		Name:          "gaonamotos",
		AllowedDomain: "gaonamotos.com",
		EntryPoints:   []EntryPoint{{URL: "https://gaonamotos.com"}},
		Selectors:     gaonaSelectors("6"),
		Pagination:    true,
		UseBrowser:    true,
	}
}
