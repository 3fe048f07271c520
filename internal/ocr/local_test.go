package ocr

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n0000")

var _ = Describe("LocalEngine", func() {
	var (
		runner *fakeRunner
		engine *LocalEngine
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		runner = &fakeRunner{out: []string{"FRESH GROCERY MART\n\n-----\r\nNet  Amount:\tRs. 245.50\n"}}
		engine = NewLocalEngine(LocalConfig{
			TesseractLang: "eng+hin",
			PSM:           6,
			WorkDir:       GinkgoT().TempDir(),
		}, discard, WithRunner(runner))
	})

	waitFor := func(id string) ReadResult {
		GinkgoHelper()
		var res ReadResult
		Eventually(func() constants.ReadStatus {
			var err error
			res, err = engine.Result(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			return res.Status
		}).Should(Or(Equal(constants.ReadSucceeded), Equal(constants.ReadFailed)))
		return res
	}

	It("recognizes an image in the background", func() {
		id, err := engine.Submit(ctx, Image{Data: pngMagic})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(HaveLen(26))

		res := waitFor(id)
		Expect(res.Status).To(Equal(constants.ReadSucceeded))
		Expect(res.Lines()).To(Equal([]string{"FRESH GROCERY MART", "Net Amount: Rs. 245.50"}))
	})

	It("passes language and page segmentation to tesseract", func() {
		id, err := engine.Submit(ctx, Image{Data: pngMagic, ContentType: "image/png"})
		Expect(err).NotTo(HaveOccurred())
		waitFor(id)

		Expect(runner.calls).To(HaveLen(1))
		call := runner.calls[0]
		Expect(call[0]).To(Equal("tesseract"))
		Expect(call[1]).To(HaveSuffix(".png"))
		Expect(call[2:]).To(Equal([]string{"stdout", "-l", "eng+hin", "--psm", "6"}))
	})

	It("marks the operation failed when tesseract fails", func() {
		runner.err = errors.New("exit status 1")
		id, err := engine.Submit(ctx, Image{Data: pngMagic})
		Expect(err).NotTo(HaveOccurred())
		Expect(waitFor(id).Status).To(Equal(constants.ReadFailed))
	})

	It("marks the operation failed for unsupported content", func() {
		id, err := engine.Submit(ctx, Image{Data: []byte("just words"), ContentType: "text/plain"})
		Expect(err).NotTo(HaveOccurred())
		Expect(waitFor(id).Status).To(Equal(constants.ReadFailed))
		Expect(runner.calls).To(BeEmpty())
	})

	Context("with images submitted by URL", func() {
		var server *ghttp.Server

		BeforeEach(func() {
			server = ghttp.NewServer()
			DeferCleanup(server.Close)
		})

		It("fetches them when private hosts are allowed", func() {
			engine = NewLocalEngine(LocalConfig{AllowPrivateHosts: true, WorkDir: GinkgoT().TempDir()}, discard, WithRunner(runner))
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/r.png"),
				ghttp.RespondWith(http.StatusOK, pngMagic, http.Header{"Content-Type": {"image/png"}}),
			))

			id, err := engine.Submit(ctx, Image{URL: server.URL() + "/r.png"})
			Expect(err).NotTo(HaveOccurred())
			Expect(waitFor(id).Status).To(Equal(constants.ReadSucceeded))
		})

		It("refuses loopback hosts by default", func() {
			_, err := engine.Submit(ctx, Image{URL: server.URL() + "/r.png"})
			Expect(err).To(MatchError(ErrImageFetch))
			Expect(err).To(MatchError(ErrBlockedAddress))
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})

		It("rejects images over the size cap", func() {
			engine = NewLocalEngine(LocalConfig{AllowPrivateHosts: true, MaxImageBytes: 8}, discard, WithRunner(runner))
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, pngMagic, http.Header{"Content-Type": {"image/png"}}))

			_, err := engine.Submit(ctx, Image{URL: server.URL() + "/big.png"})
			Expect(err).To(MatchError(ErrImageFetch))
			Expect(err).To(MatchError(ErrResponseTooLarge))
			Expect(runner.calls).To(BeEmpty())
		})
	})

	It("reports unknown operations", func() {
		_, err := engine.Result(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
		Expect(err).To(MatchError(ErrOperationNotFound))
	})

	It("works behind a Reader", func() {
		reader := NewReader(engine, discard, WithPollInterval(5*time.Millisecond))
		lines, err := reader.Read(ctx, Image{Data: pngMagic})
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(ContainElement("FRESH GROCERY MART"))

		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		engine.Wait(waitCtx)
	})
})

var _ = DescribeTable("blockedAddr",
	func(addr string, blocked bool) {
		Expect(blockedAddr(netip.MustParseAddr(addr))).To(Equal(blocked))
	},
	Entry("loopback", "127.0.0.1", true),
	Entry("private", "10.1.2.3", true),
	Entry("link-local metadata", "169.254.169.254", true),
	Entry("shared address space", "100.64.0.1", true),
	Entry("unspecified", "0.0.0.0", true),
	Entry("mapped loopback", "::ffff:127.0.0.1", true),
	Entry("ipv6 unique local", "fd00::1", true),
	Entry("public v4", "93.184.216.34", false),
	Entry("public v6", "2606:4700:4700::1111", false),
)

var _ = Describe("textToLines", func() {
	It("drops blanks and ruler rows and tidies spacing", func() {
		got := textToLines("  A  B \r\n\n____\n\tC\f")
		Expect(got).To(Equal([]Line{{Text: "A B"}, {Text: "C"}}))
	})
})

var _ = Describe("sniffType", func() {
	It("detects HEIC by its ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(sniffType(data, "application/octet-stream")).To(Equal("image/heic"))
	})

	It("sniffs when the type is generic", func() {
		Expect(sniffType(pngMagic, "")).To(Equal("image/png"))
	})

	It("strips parameters from a declared type", func() {
		Expect(sniffType([]byte("x"), "image/jpeg; q=1")).To(Equal("image/jpeg"))
	})
})
