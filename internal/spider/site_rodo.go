package spider

import (
	"regexp"
	"strings"
)

// rodoNextPageRe pulls the target URL out of the AJAX pagination handler.
var rodoNextPageRe = regexp.MustCompile(`pt_ajax_layer\.ajaxFilter\('([^']+)'\)`)

var rodoNextPageChain = Chain{`//*[@class="item pages-item-next"]/a[contains(@class, "next")]/@onclick`}

// rodoNextPage resolves pagination driven by an onclick handler instead of
// a plain link.
func rodoNextPage(doc *Document) string {
	onclick := doc.Root().FirstRaw(rodoNextPageChain)
	if m := rodoNextPageRe.FindStringSubmatch(onclick); m != nil {
		return m[1]
	}
	return ""
}

var rodoImagesChain = Chain{`//img/@src`}

// rodoImages keeps only catalog images; the page mixes product shots with
// theme assets under the same img selector.
func rodoImages(doc *Document, rec *ProductRecord) error {
	var imgs []string
	for _, u := range doc.Root().Links(rodoImagesChain) {
		if strings.Contains(u, "catalog/product") {
			imgs = append(imgs, u)
		}
	}
	rec.Images = imgs
	return nil
}

func newRodo() *Site {
	sel := Selectors{
		MenuItems: Chain{`//*[@id="lucian_header123"]/div[2]//a`},

		ProductLinks: Chain{`//*[@id="maincontent"]/div[3]/div[1]/div[2]/div[2]/ul/li/div/div[1]/a/@href`},

		ProductName:   Chain{`//*[@id="maincontent"]/div[2]/div[1]/div[1]/div[1]/div[1]/text()`},
		ProductPrice:  Chain{`//*[@id="maincontent"]/div[2]/div[1]/div[1]/div[2]/div[1]/span/span/span/text()`},
		ProductImages: rodoImagesChain,
		AttrRows:      Chain{`//table[@id="product-attribute-specs-table"]//tr[th and td]`},
		AttrKey:       Chain{`.//th//text()`},
		AttrValue:     Chain{`./td/text()`},
		BrandLabel:    "Marca",
	}

	return &Site{
		Name:          "rodo",
		AllowedDomain: "rodo.com.ar",
		EntryPoints:   []EntryPoint{{URL: "https://rodo.com.ar"}},
		Selectors:     sel,
		Pagination:    true,
		UseBrowser:    true,
		NextPageFunc:  rodoNextPage,
		Overrides: Hooks{
			FieldImages: rodoImages,
		},
	}
}
