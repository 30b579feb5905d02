// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package frame_test

import (
	"context"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fritzduchardt/fabric-ui/internal/frame"
)

// feedAll feeds chunks in order and returns the joined deltas.
func feedAll(p *frame.Parser, chunks ...string) (string, bool) {
	var sb strings.Builder
	var done bool
	for _, c := range chunks {
		deltas, d := p.Feed(c)
		for _, delta := range deltas {
			sb.WriteString(delta)
		}
		done = d
	}
	return sb.String(), done
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

var _ = Describe("Parser", func() {
	var p *frame.Parser

	BeforeEach(func() {
		p = frame.NewParser()
	})

	It("emits deltas for complete frames and holds back the tail", func() {
		deltas, done := p.Feed("data: {\"content\":\"Hel\"}\n\ndata: {\"con")
		Expect(done).To(BeFalse())
		Expect(deltas).To(Equal([]string{"Hel"}))
		Expect(p.Pending()).To(Equal("data: {\"con"))

		deltas, done = p.Feed("tent\":\"lo\"}\n\ndata: [DONE]\n\n")
		Expect(done).To(BeTrue())
		Expect(deltas).To(Equal([]string{"lo"}))
	})

	It("produces the same text for every split point", func() {
		stream := "data: {\"content\":\"Hel\"}\n\ndata: {\"content\":\"lo\"}\n\n" +
			"data: {\"content\":\" wörld\"}\n\ndata: [DONE]\n\n"

		for i := 0; i <= len(stream); i++ {
			text, done := feedAll(frame.NewParser(), stream[:i], stream[i:])
			Expect(text).To(Equal("Hello wörld"), "split at %d", i)
			Expect(done).To(BeTrue(), "split at %d", i)
		}
	})

	It("produces the same text when fed byte by byte", func() {
		stream := "data: {\"content\":\"a\"}\r\n\r\ndata: {\"content\":\"b\"}\r\n\r\n"
		chunks := make([]string, 0, len(stream))
		for i := range len(stream) {
			chunks = append(chunks, stream[i:i+1])
		}
		text, done := feedAll(p, chunks...)
		Expect(text).To(Equal("ab"))
		Expect(done).To(BeFalse())
	})

	It("ignores everything after the sentinel", func() {
		text, done := feedAll(p,
			"data: {\"content\":\"x\"}\n\ndata: [DONE]\n\ndata: {\"content\":\"y\"}\n\n",
			"data: {\"content\":\"z\"}\n\n",
		)
		Expect(text).To(Equal("x"))
		Expect(done).To(BeTrue())
		Expect(p.Done()).To(BeTrue())
	})

	It("skips malformed and non-data frames", func() {
		var malformed []*frame.MalformedFrameError
		p.OnMalformed = func(err *frame.MalformedFrameError) {
			malformed = append(malformed, err)
		}

		text, _ := feedAll(p,
			": keep-alive\n\n",
			"event: ping\n\n",
			"data: {not json\n\n",
			"data: {\"content\":\"ok\"}\n\n",
		)
		Expect(text).To(Equal("ok"))
		Expect(p.Dropped()).To(Equal(1))
		Expect(malformed).To(HaveLen(1))
		Expect(malformed[0].Payload).To(Equal("{not json"))
	})

	It("yields nothing for frames without content", func() {
		deltas, done := p.Feed("data: {}\n\ndata: {\"content\":\"\"}\n\n")
		Expect(deltas).To(BeEmpty())
		Expect(done).To(BeFalse())
		Expect(p.Frames()).To(Equal(2))
	})
})

var _ = Describe("Read", func() {
	It("reads a body to the sentinel", func() {
		body := strings.NewReader("data: {\"content\":\"Hel\"}\n\ndata: {\"content\":\"lo\"}\n\ndata: [DONE]\n\n")
		var got []string

		res, err := frame.Read(context.Background(), body, func(d string) { got = append(got, d) }, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Done).To(BeTrue())
		Expect(res.Frames).To(Equal(3))
		Expect(got).To(Equal([]string{"Hel", "lo"}))
	})

	It("treats EOF without a sentinel as a normal end", func() {
		body := strings.NewReader("data: {\"content\":\"partial\"}\n\ndata: {\"content\":\"cut")
		var sb strings.Builder

		res, err := frame.Read(context.Background(), body, func(d string) { sb.WriteString(d) }, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Done).To(BeFalse())
		Expect(sb.String()).To(Equal("partial"))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := frame.Read(ctx, strings.NewReader("data: {\"content\":\"x\"}\n\n"), func(string) {
			Fail("no delta expected")
		}, nil)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	It("wraps transport errors", func() {
		_, err := frame.Read(context.Background(), errReader{err: io.ErrUnexpectedEOF}, func(string) {}, nil)
		Expect(err).To(MatchError(ContainSubstring("read stream")))
		Expect(errors.Is(err, io.ErrUnexpectedEOF)).To(BeTrue())
	})
})
