package scanning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server *ghttp.Server
		model  *Ollama
		reply  string
		err    error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		model, err = NewOllama(server.URL(), "qwen2.5vl:7b")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		reply, err = model.Generate(context.Background(), []byte("png"), "image/png", "read it")
	})

	When("the server answers", func() {
		var sent ollamaChatRequest

		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					body, _ := io.ReadAll(r.Body)
					Expect(json.Unmarshal(body, &sent)).To(Succeed())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: `{"items": []}`},
					Done:    true,
				}),
			))
		})

		It("returns the message content", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal(`{"items": []}`))
		})

		It("asks for JSON with the image attached", func() {
			Expect(sent.Model).To(Equal("qwen2.5vl:7b"))
			Expect(sent.Format).To(Equal("json"))
			Expect(sent.Stream).To(BeFalse())
			Expect(sent.Messages).To(HaveLen(2))
			Expect(sent.Messages[0].Role).To(Equal("system"))
			Expect(sent.Messages[1].Content).To(Equal("read it"))
			Expect(sent.Messages[1].Images).To(ConsistOf("cG5n"))
		})
	})

	When("the server returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns a StatusError", func() {
			var statusErr *StatusError
			Expect(err).To(BeAssignableToTypeOf(statusErr))
			Expect(err.(*StatusError).StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(err.Error()).To(ContainSubstring("model not loaded"))
		})
	})
})

var _ = Describe("NewOllama", func() {
	It("applies defaults", func() {
		m, err := NewOllama("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Name()).To(Equal("ollama/llava"))
		Expect(m.baseURL).To(Equal("http://localhost:11434"))
	})
})
