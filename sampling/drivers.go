package sampling

import (
	"go-sonify/debug"
	"go-sonify/mapper"
	"go-sonify/visual"
	"go-sonify/voice"

	"go.uber.org/zap"
)

// VoiceDriver plays each region: red picks the pitch, green the volume and
// blue the modulation rate.
type VoiceDriver struct {
	pool      *voice.Pool
	mapper    *mapper.Mapper
	retrigger bool
	log       *zap.Logger
}

// NewVoiceDriver returns a driver for pool. With retrigger every region is
// re-articulated on every tick; without it a region keeps sounding and only
// restarts when its pitch changes.
func NewVoiceDriver(pool *voice.Pool, m *mapper.Mapper, retrigger bool, log *zap.Logger) *VoiceDriver {
	return &VoiceDriver{
		pool:      pool,
		mapper:    m,
		retrigger: retrigger,
		log:       debug.Sampled(debug.OrNop(log), 50),
	}
}

func (d *VoiceDriver) params(s Sample) voice.Params {
	return voice.Params{
		Cell:       s.Region,
		Pitch:      d.mapper.QuantizePitch(s.R).Frequency(),
		Volume:     d.mapper.MapVolume(s.G),
		Modulation: d.mapper.MapModulation(s.B),
		Velocity:   1,
	}
}

func (d *VoiceDriver) Consume(tick uint64, samples []Sample) {
	if d.retrigger {
		d.pool.ReleaseAll()
	}
	for _, s := range samples {
		id := voice.Region(s.Region)
		p := d.params(s)
		if v, ok := d.pool.Lookup(id); ok {
			if v.Pitch == p.Pitch {
				d.pool.Update(id, p.Volume, p.Modulation)
				continue
			}
			d.pool.Release(id)
		}
		if _, err := d.pool.Allocate(id, p); err != nil {
			d.log.Debug("region not voiced", zap.Int("region", s.Region), zap.Error(err))
		}
	}
}

// VisualDriver draws each region as a cell at the region center, scaled by
// red and green, colored with the sampled color.
type VisualDriver struct {
	out visual.Renderer
}

func NewVisualDriver(out visual.Renderer) *VisualDriver {
	return &VisualDriver{out: out}
}

// CircleScale divides channel values into cell scale.
const CircleScale = 50.0

func (d *VisualDriver) Consume(tick uint64, samples []Sample) {
	for _, s := range samples {
		d.out.SetCellTransform(s.Region, visual.Vec{X: s.X, Y: s.Y}, visual.Vec{X: s.R / CircleScale, Y: s.G / CircleScale})
		d.out.SetCellColor(s.Region, visual.RGB8(s.R, s.G, s.B))
	}
}
