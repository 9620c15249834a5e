package discovery

import (
	"errors"
	"time"

	"github.com/etpu-project/etpu-go/pkg/wire"
)

// Service constants.
const (
	// ServiceType is the DNS-SD type of a bus bridge.
	ServiceType = "_etpubridge._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default bridge port.
	DefaultPort = 1234

	// BrowseTimeout is the default timeout for Find.
	BrowseTimeout = 5 * time.Second
)

// TXT record keys.
const (
	TXTKeyID      = "id"
	TXTKeyIdent   = "ident"
	TXTKeyClock   = "clk"
	TXTKeyRegions = "regions"
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTValueLen keeps one key=value string within a TXT character
	// string.
	MaxTXTValueLen = 255
)

// Errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT record")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrNotFound            = errors.New("bridge not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// RegionEntry is one advertised region.
type RegionEntry struct {
	Name   string
	Origin uint32
	Length uint64
}

// BridgeInfo is what a bridge advertises.
type BridgeInfo struct {
	// ID is the SoC build ID.
	ID string

	// Ident is the SoC identification string.
	Ident string

	// SysClkFreq is the sys clock in Hz.
	SysClkFreq uint64

	// Regions is the software-visible region table.
	Regions []RegionEntry

	// Port is the bridge's TCP port.
	Port uint16
}

// FromInfo builds the advertisement for a bridge serving info on port.
func FromInfo(info *wire.InfoPayload, port uint16) *BridgeInfo {
	b := &BridgeInfo{
		ID:         info.BuildID,
		Ident:      info.Ident,
		SysClkFreq: info.SysClkFreq,
		Port:       port,
	}
	for _, r := range info.Regions {
		b.Regions = append(b.Regions, RegionEntry{Name: r.Name, Origin: r.Origin, Length: r.Length})
	}
	return b
}

// BridgeService is a bridge found on the network.
type BridgeService struct {
	BridgeInfo

	InstanceName string
	Host         string
	Addresses    []string
}

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	Interface string

	// TTL overrides the record TTL.
	TTL time.Duration
}

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	Interface string
}
