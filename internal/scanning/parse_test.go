package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseVisionResponse", func() {
	var (
		input  string
		result *ExtractionResult
		err    error
	)

	JustBeforeEach(func() {
		result, err = parseVisionResponse(input, DefaultLimits())
	})

	When("parsing valid JSON", func() {
		BeforeEach(func() {
			input = `{"items": [{"description": "CAFE PILAO 500G", "quantity": 1, "total": 17.98}], "confidence": "high"}`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse the item", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Description).To(Equal("CAFE PILAO 500G"))
			Expect(result.Items[0].Amount.StringFixed(2)).To(Equal("17.98"))
		})

		It("should keep the declared confidence", func() {
			Expect(result.Confidence).To(Equal(ConfidenceHigh))
		})
	})

	When("parsing JSON with markdown code blocks", func() {
		BeforeEach(func() {
			input = "```json\n{\"items\": [{\"description\": \"CAFE PILAO\", \"amount\": \"17,98\"}]}\n```"
		})

		It("should fall back to the amount field", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items[0].Amount.StringFixed(2)).To(Equal("17.98"))
			Expect(result.Items[0].Quantity).To(Equal(1))
		})

		It("should default the confidence to medium", func() {
			Expect(result.Confidence).To(Equal(ConfidenceMedium))
		})
	})

	When("the metadata uses placeholders", func() {
		BeforeEach(func() {
			input = `{"items": [], "metadata": {"establishment": "null", "cnpj": "N/A", "date": "2024-03-15T00:00:00", "time": "unknown", "total": null, "payment_method": "Cartão de Crédito"}}`
		})

		It("should leave them empty", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Metadata.Establishment).To(BeEmpty())
			Expect(result.Metadata.CNPJ).To(BeEmpty())
			Expect(result.Metadata.Time).To(BeEmpty())
			Expect(result.Metadata.Total).To(BeNil())
		})

		It("should normalize the date and payment", func() {
			Expect(result.Metadata.Date).To(Equal("15/03/2024"))
			Expect(result.Metadata.PaymentMethod.Type).To(Equal(PaymentCredit))
			Expect(result.Metadata.PaymentMethod.Details).To(Equal("Cartão de Crédito"))
		})
	})

	When("parsing invalid JSON", func() {
		BeforeEach(func() {
			input = `{"items": "not a list"}`
		})

		It("should return an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("extractJSONObject", func() {
	It("strips text around the object", func() {
		out, err := extractJSONObject("Sure! {\"a\": {\"b\": 1}} hope it helps")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"a": {"b": 1}}`))
	})

	It("returns ErrNoJSON without braces", func() {
		_, err := extractJSONObject("no json here")
		Expect(err).To(MatchError(ErrNoJSON))
	})

	It("rejects a closing brace before the opening one", func() {
		_, err := extractJSONObject("} {")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("paymentType", func() {
	DescribeTable("model answers",
		func(in string, expected PaymentType) {
			Expect(paymentType(in)).To(Equal(expected))
		},
		Entry("canonical", "pix", PaymentPix),
		Entry("upper case", "DEBIT", PaymentDebit),
		Entry("portuguese debit", "Cartão de Débito", PaymentDebit),
		Entry("cash", "dinheiro", PaymentCash),
		Entry("unknown", "vale refeição", PaymentOther),
	)
})
