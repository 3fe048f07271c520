package common

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LoadConfig", func() {
	BeforeEach(func() {
		for _, k := range []string{"DB_DRIVER", "DB_URL", "OCR_ENGINE", "AZURE_VISION_ENDPOINT", "AZURE_VISION_KEY", "OCR_POLL_INTERVAL", "OCR_MAX_POLLS", "OCR_FETCH_MAX_BYTES", "OCR_FETCH_PRIVATE_HOSTS", "HTTP_ADDR", "GRPC_ADDR"} {
			GinkgoT().Setenv(k, "")
		}
	})

	It("applies defaults", func() {
		cfg := LoadConfig()
		Expect(cfg.Database.Driver).To(Equal("postgres"))
		Expect(cfg.OCR.Engine).To(Equal("azure"))
		Expect(cfg.OCR.PollInterval).To(Equal(time.Second))
		Expect(cfg.OCR.MaxPolls).To(BeZero())
		Expect(cfg.OCR.FetchMaxBytes).To(Equal(20 << 20))
		Expect(cfg.OCR.FetchPrivateHosts).To(BeFalse())
		Expect(cfg.Server.HTTPAddr).To(Equal(":3000"))
	})

	It("reads typed values", func() {
		GinkgoT().Setenv("DB_DRIVER", "SQLite")
		GinkgoT().Setenv("OCR_POLL_INTERVAL", "250ms")
		GinkgoT().Setenv("OCR_MAX_POLLS", "40")
		GinkgoT().Setenv("OCR_FETCH_PRIVATE_HOSTS", "true")
		cfg := LoadConfig()
		Expect(cfg.OCR.FetchPrivateHosts).To(BeTrue())
		Expect(cfg.Database.Driver).To(Equal("sqlite"))
		Expect(cfg.OCR.PollInterval).To(Equal(250 * time.Millisecond))
		Expect(cfg.OCR.MaxPolls).To(Equal(40))
	})

	It("ignores unparsable numbers", func() {
		GinkgoT().Setenv("OCR_MAX_POLLS", "many")
		Expect(LoadConfig().OCR.MaxPolls).To(BeZero())
	})

	Describe("Validate", func() {
		var cfg *Config

		BeforeEach(func() {
			cfg = LoadConfig()
			cfg.Database.DSN = "postgres://localhost/expenses"
			cfg.OCR.AzureEndpoint = "https://vision.example"
			cfg.OCR.AzureKey = "k"
		})

		It("accepts a complete config", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		It("requires a DSN", func() {
			cfg.Database.DSN = ""
			Expect(cfg.Validate()).To(MatchError(ErrInvalidInput))
		})

		It("requires azure credentials for the azure engine", func() {
			cfg.OCR.AzureKey = ""
			err := cfg.Validate()
			var ae *AppError
			Expect(errors.As(err, &ae)).To(BeTrue())
			Expect(ae.Message).To(ContainSubstring("AZURE_VISION_KEY"))
		})

		It("does not need azure credentials for tesseract", func() {
			cfg.OCR.Engine = "tesseract"
			cfg.OCR.AzureKey = ""
			Expect(cfg.Validate()).To(Succeed())
		})

		It("rejects unknown drivers and engines", func() {
			cfg.Database.Driver = "mssql"
			Expect(cfg.Validate()).To(HaveOccurred())
			cfg.Database.Driver = "sqlite"
			cfg.OCR.Engine = "magic"
			Expect(cfg.Validate()).To(HaveOccurred())
		})
	})
})

var _ = Describe("NewLogger", func() {
	It("writes JSON when asked", func() {
		var buf bytes.Buffer
		NewLogger(&buf, LogConfig{Level: "debug", Format: "json"}).Debug("hello", "k", 1)
		Expect(buf.String()).To(ContainSubstring(`"msg":"hello"`))
	})

	It("warns about an unknown level and stays at info", func() {
		var buf bytes.Buffer
		l := NewLogger(&buf, LogConfig{Level: "loud"})
		Expect(buf.String()).To(ContainSubstring("invalid LOG_LEVEL"))
		buf.Reset()
		l.Debug("hidden")
		Expect(buf.String()).To(BeEmpty())
	})
})
