package async

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Queue", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	It("runs every queued job before shutdown returns", func() {
		var (
			mu   sync.Mutex
			seen []string
		)
		q := NewQueue(func(_ context.Context, job Job) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, job.Path)
			return nil
		}, logger, WithWorkers(3), WithQueueSize(2))

		for i := 0; i < 10; i++ {
			Expect(q.Enqueue(context.Background(), Job{Path: fmt.Sprintf("r%d.jpg", i)})).To(Succeed())
		}
		q.Shutdown(context.Background())

		mu.Lock()
		defer mu.Unlock()
		Expect(seen).To(HaveLen(10))
		Expect(seen).To(ContainElement("r7.jpg"))
	})

	It("keeps going after a failing job", func() {
		var ok atomic.Int32
		q := NewQueue(func(_ context.Context, job Job) error {
			if job.Path == "bad" {
				return errors.New("boom")
			}
			ok.Add(1)
			return nil
		}, logger, WithWorkers(1))

		Expect(q.Enqueue(context.Background(), Job{Path: "bad"})).To(Succeed())
		Expect(q.Enqueue(context.Background(), Job{Path: "good"})).To(Succeed())
		q.Shutdown(context.Background())
		Expect(ok.Load()).To(Equal(int32(1)))
	})

	It("bounds each job with the process timeout", func() {
		deadlines := make(chan bool, 1)
		q := NewQueue(func(ctx context.Context, _ Job) error {
			_, has := ctx.Deadline()
			deadlines <- has
			<-ctx.Done()
			return ctx.Err()
		}, logger, WithWorkers(1), WithProcessTimeout(20*time.Millisecond))

		Expect(q.Enqueue(context.Background(), Job{Path: "slow"})).To(Succeed())
		Eventually(deadlines).Should(Receive(BeTrue()))
		q.Shutdown(context.Background())
	})

	It("rejects jobs after shutdown", func() {
		q := NewQueue(func(context.Context, Job) error { return nil }, logger)
		q.Shutdown(context.Background())
		Expect(q.Enqueue(context.Background(), Job{Path: "late"})).To(MatchError(ErrQueueClosed))
	})

	It("gives up waiting for a full buffer when the context ends", func() {
		release := make(chan struct{})
		q := NewQueue(func(context.Context, Job) error {
			<-release
			return nil
		}, logger, WithWorkers(1), WithQueueSize(1))
		DeferCleanup(func() {
			close(release)
			q.Shutdown(context.Background())
		})

		Expect(q.Enqueue(context.Background(), Job{Path: "a"})).To(Succeed())
		Eventually(func() int { return len(q.ch) }).Should(BeZero())
		Expect(q.Enqueue(context.Background(), Job{Path: "b"})).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(q.Enqueue(ctx, Job{Path: "c"})).To(MatchError(context.DeadlineExceeded))
	})
})
