package wallet

import (
	"github.com/sirupsen/logrus"

	"github.com/ipv8go/wallet/cache"
	"github.com/ipv8go/wallet/revocation"
	"github.com/ipv8go/wallet/schema"
	"github.com/ipv8go/wallet/store"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.StandardLogger()
	cache.Logger = Logger
	revocation.Logger = Logger
	schema.Logger = Logger
	store.Logger = Logger
}
