package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DetectCategory", func() {
	DescribeTable("establishment names",
		func(name string, expected Category) {
			Expect(DetectCategory(name)).To(Equal(expected))
		},
		Entry("supermarket", "SUPERMERCADO BOM PRECO LTDA", CategoryGroceries),
		Entry("pharmacy with accents", "Farmácia Popular", CategoryHealth),
		Entry("gas station", "AUTO POSTO IPIRANGA", CategoryTransport),
		Entry("pet shop", "COBASI COMERCIO", CategoryPets),
		Entry("bookstore", "LIVRARIA CULTURA", CategoryEducation),
		Entry("keyword inside another word", "TIMBAUBA DECORACOES", CategoryMiscellaneous),
		Entry("unknown", "LOJA XYZ", CategoryMiscellaneous),
		Entry("empty", "", CategoryMiscellaneous),
	)
})
