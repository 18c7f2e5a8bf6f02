//go:build integration

package integration

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBlockingIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Blocking Integration Suite")
}
