package events

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", func() {
	Context("write", func() {
		It("writes successfully", func() {
			w := newTestWriter()
			kp := NewEventProducer(w)

			err := kp.Write(context.TODO(), JobSubmittedKind, bytes.NewReader([]byte(`{"job_id":"job-1"}`)))
			Expect(err).To(BeNil())
			Eventually(w.Len).WithTimeout(2 * time.Second).Should(Equal(1))

			e := w.At(0)
			Expect(e.Type()).To(Equal(JobSubmittedKind))
			Expect(e.Source()).To(Equal(defaultSource))
			Expect(w.Topic(0)).To(Equal(defaultTopic))
			Expect(string(e.Data())).To(Equal(`{"job_id":"job-1"}`))

			err = kp.Write(context.TODO(), JobCompletedKind, bytes.NewReader([]byte(`{}`)))
			Expect(err).To(BeNil())
			Eventually(w.Len).WithTimeout(2 * time.Second).Should(Equal(2))
			Expect(w.At(1).Type()).To(Equal(JobCompletedKind))

			Expect(kp.Close()).To(Succeed())
		})

		It("honors topic and source options", func() {
			w := newTestWriter()
			kp := NewEventProducer(w, WithOutputTopic("custom.topic"), WithSource("test"), WithOutputTopic(""))

			Expect(kp.Write(context.TODO(), JobFailedKind, bytes.NewReader([]byte(`{}`)))).To(Succeed())
			Eventually(w.Len).WithTimeout(2 * time.Second).Should(Equal(1))
			Expect(w.Topic(0)).To(Equal("custom.topic"))
			Expect(w.At(0).Source()).To(Equal("test"))

			Expect(kp.Close()).To(Succeed())
		})

		It("flushes pending events on close", func() {
			w := newTestWriter()
			kp := NewEventProducer(w)

			for i := 0; i < 20; i++ {
				Expect(kp.Write(context.TODO(), JobSubmittedKind, bytes.NewReader([]byte(`{}`)))).To(Succeed())
			}
			Expect(kp.Close()).To(Succeed())
			Expect(w.Len()).To(Equal(20))
			Expect(w.closed).To(BeTrue())
		})
	})

	Context("kafka writer", func() {
		It("sends the event as json keyed by its id", func() {
			cfg := sarama.NewConfig()
			cfg.Producer.Return.Successes = true
			mp := mocks.NewSyncProducer(GinkgoT(), cfg)

			var sent []byte
			mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
				sent = val
				return nil
			})

			kw := NewKafkaWriterFromProducer(mp)
			e := cloudevents.NewEvent()
			e.SetID("event-1")
			e.SetSource(defaultSource)
			e.SetType(JobCompletedKind)
			Expect(e.SetData(*cloudevents.StringOfApplicationJSON(), []byte(`{"job_id":"job-1"}`))).To(Succeed())

			Expect(kw.Write(context.TODO(), defaultTopic, e)).To(Succeed())

			var decoded map[string]any
			Expect(json.Unmarshal(sent, &decoded)).To(Succeed())
			Expect(decoded["id"]).To(Equal("event-1"))
			Expect(decoded["type"]).To(Equal(JobCompletedKind))

			Expect(kw.Close(context.TODO())).To(Succeed())
		})
	})
})

type testwriter struct {
	mu       sync.Mutex
	messages []cloudevents.Event
	topics   []string
	closed   bool
}

func newTestWriter() *testwriter {
	return &testwriter{}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, e)
	t.topics = append(t.topics, topic)
	return nil
}

func (t *testwriter) Close(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *testwriter) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

func (t *testwriter) At(i int) cloudevents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.messages[i]
}

func (t *testwriter) Topic(i int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.topics[i]
}
