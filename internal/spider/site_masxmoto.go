package spider

func newMasxmoto() *Site {
	sel := mercadoShopsSelectors()
	sel.MenuItems = Chain{`//*[@id="responsive-menu"]/ul/li`}
	sel.MenuLink = Chain{`./a`}
	sel.Submenu = nil
	sel.SubLinks = nil

	sel.SourceLogo = Chain{`//*[@id="logo-wrapper"]/img/@src`}
	sel.SourceAddress = Chain{`//*[@id="footer-container"]/footer/div[1]/div/div/div[6]/ul/li[3]/a/text()`}
	sel.SourcePhone = Chain{`//*[@id="footer-container"]/footer/div[1]/div/div/div[6]/ul/li[1]/a/text()`}
	sel.SourceEmail = Chain{`//*[@id="footer-container"]/footer/div[1]/div/div/div[6]/ul/li[2]/a/text()`}

	descSel := sel.ProductDescription
	return &Site{
		Name:          "masxmoto",
		AllowedDomain: "masxmoto.com.ar",
		EntryPoints:   []EntryPoint{{URL: "https://masxmoto.com.ar"}},
		Selectors:     sel,
		Pagination:    false,
		UseBrowser:    true,
		Overrides: Hooks{
			// The description spans several text nodes joined with carriage
			// returns to keep the line structure.
			FieldDescription: func(doc *Document, rec *ProductRecord) error {
				rec.Description = strPtr(doc.Root().TextJoin(descSel, "\r"))
				return nil
			},
		},
	}
}
