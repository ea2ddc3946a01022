package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	st "github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store"
)

var _ = Describe("binding store", Ordered, func() {
	var (
		store  st.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		gormdb = newTestDB()
		store = st.NewStore(gormdb)
	})

	AfterAll(func() {
		store.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM session_bindings;")
	})

	It("keeps the first binding", func() {
		bound, err := store.Binding().BindIfAbsent(context.TODO(), "session", "A")
		Expect(err).To(BeNil())
		Expect(bound).To(BeTrue())

		bound, err = store.Binding().BindIfAbsent(context.TODO(), "session", "B")
		Expect(err).To(BeNil())
		Expect(bound).To(BeFalse())

		id, err := store.Binding().Get(context.TODO(), "session")
		Expect(err).To(BeNil())
		Expect(id).To(Equal("A"))
	})

	It("returns not found for an unbound session", func() {
		_, err := store.Binding().Get(context.TODO(), "nobody")
		Expect(err).To(MatchError(st.ErrRecordNotFound))
	})

	It("binds again after a clear", func() {
		_, err := store.Binding().BindIfAbsent(context.TODO(), "session", "A")
		Expect(err).To(BeNil())

		Expect(store.Binding().Clear(context.TODO(), "session")).To(BeNil())
		_, err = store.Binding().Get(context.TODO(), "session")
		Expect(err).To(MatchError(st.ErrRecordNotFound))

		bound, err := store.Binding().BindIfAbsent(context.TODO(), "session", "B")
		Expect(err).To(BeNil())
		Expect(bound).To(BeTrue())

		id, err := store.Binding().Get(context.TODO(), "session")
		Expect(err).To(BeNil())
		Expect(id).To(Equal("B"))
	})

	It("clearing an unbound session is not an error", func() {
		Expect(store.Binding().Clear(context.TODO(), "nobody")).To(BeNil())
	})
})
