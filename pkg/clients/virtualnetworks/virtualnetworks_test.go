/*
Copyright 2019 Alexander Eldeib.
*/

package virtualnetworks_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/network/mgmt/2019-04-01/network"
	"github.com/Azure/go-autorest/autorest"
	"github.com/Azure/go-autorest/autorest/to"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/alexeldeib/dspm-netconfig/pkg/clients/virtualnetworks"
	"github.com/alexeldeib/dspm-netconfig/pkg/config"
)

const persisted = `{"name":"vnet-westus","location":"westus","properties":{"addressSpace":{"addressPrefixes":["10.9.0.0/16"]},"provisioningState":"Succeeded"}}`

func serveNetworks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/resourceGroups/rg/providers/Microsoft.Network/virtualNetworks"):
		_, _ = w.Write([]byte(`{"value":[` + persisted + `]}`))
	case strings.HasSuffix(r.URL.Path, "/virtualNetworks/vnet-westus"):
		_, _ = w.Write([]byte(persisted))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

var _ = Describe("Client", func() {
	var (
		server *httptest.Server
		client *virtualnetworks.Client
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(serveNetworks))
		cfg, err := config.New(config.Subscription("sub"), config.Authorizer(autorest.NullAuthorizer{}))
		Expect(err).NotTo(HaveOccurred())
		client = virtualnetworks.NewWithFactory(cfg, func(subscriptionID string) network.VirtualNetworksClient {
			return network.NewVirtualNetworksClientWithBaseURI(server.URL, subscriptionID)
		})
		Expect(client.ForSubscription("sub")).To(Succeed())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should wait for the write and return the persisted network", func() {
		got, err := client.CreateOrUpdate(context.Background(), "rg", "vnet-westus", *remoteNetwork())
		Expect(err).NotTo(HaveOccurred())
		Expect(to.String(got.Name)).To(Equal("vnet-westus"))
		Expect(*got.AddressSpace.AddressPrefixes).To(Equal([]string{"10.9.0.0/16"}))
		Expect(to.String(got.ProvisioningState)).To(Equal("Succeeded"))
	})

	It("should list the networks of a group", func() {
		got, err := client.List(context.Background(), "rg")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1))
		Expect(to.String(got[0].Location)).To(Equal("westus"))
	})

	It("should surface provider errors from the write", func() {
		_, err := client.CreateOrUpdate(context.Background(), "rg", "missing", *remoteNetwork())
		Expect(err).To(HaveOccurred())
	})
})
