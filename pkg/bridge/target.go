package bridge

import (
	"context"

	"github.com/etpu-project/etpu-go/pkg/bus"
	"github.com/etpu-project/etpu-go/pkg/soc"
	"github.com/etpu-project/etpu-go/pkg/wire"
)

// Target is the bus master a bridge drives.
type Target interface {
	// Transact runs one bus beat to completion. source names the requester
	// in the transaction trace.
	Transact(ctx context.Context, sig bus.Signals, source string) (bus.Response, error)

	// Reset pulses the soft reset and waits for the domain to come back.
	Reset(ctx context.Context, cycles int) error
}

var _ Target = (*soc.Master)(nil)

// Describe returns the info payload for a composed SoC.
func Describe(s *soc.SoC) *wire.InfoPayload {
	regions := s.Regions().Regions()
	info := &wire.InfoPayload{
		Ident:      s.Ident(),
		BuildID:    s.BuildID().String(),
		SysClkFreq: uint64(s.Domain().Freq),
		Regions:    make([]wire.RegionInfo, 0, len(regions)),
	}
	for _, r := range regions {
		info.Regions = append(info.Regions, wire.RegionInfo{
			Name:   r.Name,
			Origin: uint32(r.Origin),
			Length: r.Length,
			Type:   r.Type.String(),
			Mode:   r.Mode.String(),
		})
	}
	return info
}
