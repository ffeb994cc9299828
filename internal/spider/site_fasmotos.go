package spider

func newFasmotos() *Site {
	sel := mercadoShopsSelectors()
	sel.ProductLinks = Chain{`//a[contains(@class, "poly-component__title")]/@href`}
	sel.ProductPrice = Chain{`//*[@id="price"]/div/div[1]/div[1]/span[1]/span/span[2]/text()`}
	sel.ProductImages = Chain{`//img[@data-zoom]/@data-zoom`}
	sel.ProductDescription = Chain{`//*[@id="ui-vpp-highlighted-specs"]`}
	sel.DiscountText = Chain{`//*[@id="pills"]/div/div/p/span/text()`}
	sel.Payments = Chain{`//*[@id="pricing_price_subtitle"]`}

	descSel := sel.ProductDescription
	return &Site{
		Name:          "fasmotos",
		AllowedDomain: "fasmotos.com.ar",
		// The shop menu is rendered client side, so each category listing
		// is entered directly under a preset menu name.
		EntryPoints: []EntryPoint{
			{MenuName: "Cubiertas", URL: "https://www.fasmotos.com.ar/listado/accesorios-vehiculos/neumaticos/cubiertas-motos/"},
			{MenuName: "Cascos", URL: "https://www.fasmotos.com.ar/listado/accesorios-vehiculos/acc-motos-cuatriciclos/cascos/"},
			{MenuName: "Indumentaria", URL: "https://www.fasmotos.com.ar/listado/ropa-accesorios/"},
			{MenuName: "Repuestos y Accesorios", URL: "https://www.fasmotos.com.ar/listado/accesorios-vehiculos/repuestos-motos-cuatriciclos/"},
		},
		Selectors:  sel,
		Pagination: false,
		UseBrowser: true,
		Overrides: Hooks{
			FieldDescription: func(doc *Document, rec *ProductRecord) error {
				rec.Description = strPtr(doc.Root().TextJoin(descSel, "\r"))
				return nil
			},
		},
	}
}
