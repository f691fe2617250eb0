/*
Copyright 2019 Alexander Eldeib.
*/

package addressplan_test

import (
	"bytes"
	"context"
	"io"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/alexeldeib/dspm-netconfig/pkg/addressplan"
)

type scriptedPrompter struct {
	answers []string
	errs    map[int]error
	asked   []string
}

func (s *scriptedPrompter) Prompt(text string) (string, error) {
	n := len(s.asked)
	s.asked = append(s.asked, text)
	if err, ok := s.errs[n]; ok {
		return "", err
	}
	if n >= len(s.answers) {
		return "", io.EOF
	}
	return s.answers[n], nil
}

var _ = Describe("interactive plans", func() {
	log := zap.LoggerTo(GinkgoWriter, true)

	It("should ask once per region and skip empty answers", func() {
		prompter := &scriptedPrompter{answers: []string{"10.0.1.0/24", "", "10.0.3.0/24"}}
		plan, err := addressplan.Interactive(prompter, log).Resolve(context.Background(), scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan).To(Equal(addressplan.Plan{"westus": "10.0.1.0/24", "centralus": "10.0.3.0/24"}))
		Expect(prompter.asked).To(HaveLen(3))
		Expect(prompter.asked[0]).To(ContainSubstring("westus"))
	})

	It("should ask again after an invalid answer", func() {
		prompter := &scriptedPrompter{answers: []string{"10.0.1.1/24", "10.0.1.0/24", "", ""}}
		plan, err := addressplan.Interactive(prompter, log).Resolve(context.Background(), scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan).To(Equal(addressplan.Plan{"westus": "10.0.1.0/24"}))
		Expect(prompter.asked[1]).To(ContainSubstring("westus"))
	})

	It("should give up on a region after repeated invalid answers", func() {
		prompter := &scriptedPrompter{answers: []string{"x", "y", "z", "10.0.2.0/24", ""}}
		plan, err := addressplan.Interactive(prompter, log).Resolve(context.Background(), scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan).To(Equal(addressplan.Plan{"eastus": "10.0.2.0/24"}))
	})

	It("should treat an aborted prompt as a skip", func() {
		prompter := &scriptedPrompter{
			answers: []string{"", "10.0.2.0/24", ""},
			errs:    map[int]error{0: addressplan.ErrAborted},
		}
		plan, err := addressplan.Interactive(prompter, log).Resolve(context.Background(), scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan).To(Equal(addressplan.Plan{"eastus": "10.0.2.0/24"}))
	})

	It("should stop asking when input ends", func() {
		prompter := &scriptedPrompter{answers: []string{"10.0.1.0/24"}}
		plan, err := addressplan.Interactive(prompter, log).Resolve(context.Background(), scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan).To(Equal(addressplan.Plan{"westus": "10.0.1.0/24"}))
		Expect(prompter.asked).To(HaveLen(2))
	})

	It("should stop when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := addressplan.Interactive(&scriptedPrompter{}, log).Resolve(ctx, scope)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("reader prompter", func() {
	It("should write the prompt and trim the answer", func() {
		out := &bytes.Buffer{}
		prompter := addressplan.NewReaderPrompter(strings.NewReader("  10.0.1.0/24 \nlast"), out)

		answer, err := prompter.Prompt("CIDR: ")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("10.0.1.0/24"))
		Expect(out.String()).To(Equal("CIDR: "))

		answer, err = prompter.Prompt("CIDR: ")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("last"))

		_, err = prompter.Prompt("CIDR: ")
		Expect(err).To(Equal(io.EOF))
	})
})

var _ = Describe("confirmation", func() {
	It("should only accept an explicit yes", func() {
		for answer, want := range map[string]bool{"y": true, "YES": true, "": false, "n": false} {
			ok, err := addressplan.Confirm(&scriptedPrompter{answers: []string{answer}}, "replace?")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(Equal(want), answer)
		}
	})

	It("should ask again on unclear answers", func() {
		prompter := &scriptedPrompter{answers: []string{"maybe", "y"}}
		ok, err := addressplan.Confirm(prompter, "replace?")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(prompter.asked).To(HaveLen(2))
	})

	It("should surface a closed input", func() {
		_, err := addressplan.Confirm(&scriptedPrompter{}, "replace?")
		Expect(err).To(Equal(io.EOF))
	})
})
