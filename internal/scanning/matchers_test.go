package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("item matchers", func() {
	var (
		matcher  itemMatcher
		line     string
		next     string
		item     LineItem
		consumed int
		ok       bool
	)

	BeforeEach(func() {
		next = ""
	})

	JustBeforeEach(func() {
		item, consumed, ok = matcher.tryMatch(line, next)
	})

	Describe("multiLineMatcher", func() {
		BeforeEach(func() {
			matcher = multiLineMatcher{}
		})

		When("the next line has quantity, unit and prices", func() {
			BeforeEach(func() {
				line = "7891193010012 BISN SEVEN BOYS 300G TRAD"
				next = "1UN   5,49        5,49"
			})

			It("consumes both lines", func() {
				Expect(ok).To(BeTrue())
				Expect(consumed).To(Equal(2))
				Expect(item.Description).To(Equal("BISN SEVEN BOYS 300G TRAD"))
				Expect(item.Amount.StringFixed(2)).To(Equal("5.49"))
			})
		})

		When("the unit is a count", func() {
			BeforeEach(func() {
				line = "002 DETERGENTE YPE 500ML"
				next = "3 UN x 2,99 8,97"
			})

			It("keeps the quantity", func() {
				Expect(ok).To(BeTrue())
				Expect(item.Quantity).To(Equal(3))
				Expect(item.Amount.StringFixed(2)).To(Equal("8.97"))
			})
		})

		When("the unit is a weight", func() {
			BeforeEach(func() {
				line = "003 BANANA PRATA"
				next = "2 KG x 5,99 11,98"
			})

			It("counts a single item", func() {
				Expect(ok).To(BeTrue())
				Expect(item.Quantity).To(Equal(1))
			})
		})

		When("the current line is a total header", func() {
			BeforeEach(func() {
				line = "TOTAL GERAL"
				next = "1 UN x 25,90 25,90"
			})

			It("does not match", func() {
				Expect(ok).To(BeFalse())
			})
		})

		When("the current line already ends with a price", func() {
			BeforeEach(func() {
				line = "ARROZ  2 UN x 4,50  9,00"
				next = "1 UN x 8,99 8,99"
			})

			It("does not match", func() {
				Expect(ok).To(BeFalse())
			})
		})

		When("there is no next line", func() {
			BeforeEach(func() {
				line = "ARROZ BRANCO 5KG"
			})

			It("does not match", func() {
				Expect(ok).To(BeFalse())
			})
		})
	})

	Describe("multiplicationMatcher", func() {
		BeforeEach(func() {
			matcher = multiplicationMatcher{}
		})

		When("the line has a multiplication", func() {
			BeforeEach(func() {
				line = "001 LEITE INTEGRAL 1L 6 UN x 4,79 28,74"
			})

			It("consumes one line", func() {
				Expect(ok).To(BeTrue())
				Expect(consumed).To(Equal(1))
				Expect(item.Description).To(Equal("LEITE INTEGRAL 1L"))
				Expect(item.Amount.StringFixed(2)).To(Equal("28.74"))
				Expect(item.Quantity).To(Equal(6))
			})
		})

		When("the quantity does not explain the total", func() {
			BeforeEach(func() {
				line = "QUEIJO MUSSARELA 1 KG x 39,90 15,96"
			})

			It("counts a single item", func() {
				Expect(ok).To(BeTrue())
				Expect(item.Quantity).To(Equal(1))
				Expect(item.Amount.StringFixed(2)).To(Equal("15.96"))
			})
		})
	})

	Describe("twoColumnMatcher", func() {
		BeforeEach(func() {
			matcher = twoColumnMatcher{}
		})

		When("name and amount are separated by wide spacing", func() {
			BeforeEach(func() {
				line = "7891000100103 CAFE PILAO 500G    17,98"
			})

			It("strips the barcode", func() {
				Expect(ok).To(BeTrue())
				Expect(item.Description).To(Equal("CAFE PILAO 500G"))
				Expect(item.Amount.StringFixed(2)).To(Equal("17.98"))
			})
		})

		When("there is only a single space before the amount", func() {
			BeforeEach(func() {
				line = "CAFE PILAO 500G 17,98"
			})

			It("does not match", func() {
				Expect(ok).To(BeFalse())
			})
		})

		When("the amount has a thousands separator", func() {
			BeforeEach(func() {
				line = "GELADEIRA FROST FREE    3.499,00"
			})

			It("parses the whole amount", func() {
				Expect(ok).To(BeTrue())
				Expect(item.Amount.StringFixed(2)).To(Equal("3499.00"))
			})
		})
	})

	Describe("indexedCodeMatcher", func() {
		BeforeEach(func() {
			matcher = indexedCodeMatcher{}
		})

		When("the line starts with an item index", func() {
			BeforeEach(func() {
				line = "001 PRODUTO NOME 10,50"
			})

			It("drops the index", func() {
				Expect(ok).To(BeTrue())
				Expect(item.Description).To(Equal("PRODUTO NOME"))
				Expect(item.Amount.StringFixed(2)).To(Equal("10.50"))
			})
		})

		When("the line has no index", func() {
			BeforeEach(func() {
				line = "PRODUTO NOME 10,50"
			})

			It("does not match", func() {
				Expect(ok).To(BeFalse())
			})
		})
	})
})
