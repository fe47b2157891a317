package capture

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/starford/raido/internal/models"
)

// Stub is a development recognizer producing plausible slip fields
// without reading the image. Field pools and value ranges mirror the
// slips the scanning hardware is pointed at in demos.
type Stub struct {
	delay time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewStub creates a stub recognizer that takes delay per call.
func NewStub(delay time.Duration) *Stub {
	return &Stub{
		delay: delay,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type stubProfile struct {
	vehicleSuffix  string
	drivers        []string
	locations      []string
	amountBase     int
	amountSpread   int
	quantityBase   int
	quantitySpread int
	confBase       int
	confSpread     int
}

var stubProfiles = map[models.SlipType]stubProfile{
	models.SlipTypeLoading: {
		vehicleSuffix:  "ABC",
		drivers:        []string{"John Doe", "Mike Smith", "Sarah Johnson", "David Wilson"},
		locations:      []string{"Johannesburg", "Cape Town", "Durban", "Port Elizabeth"},
		amountBase:     1000,
		amountSpread:   5000,
		quantityBase:   10,
		quantitySpread: 50,
		confBase:       80,
		confSpread:     20,
	},
	models.SlipTypeOffloading: {
		vehicleSuffix:  "XYZ",
		drivers:        []string{"Peter Brown", "Lisa White", "Tom Green", "Anna Black"},
		locations:      []string{"Pretoria", "Bloemfontein", "Kimberley", "Nelspruit"},
		amountBase:     500,
		amountSpread:   3000,
		quantityBase:   5,
		quantitySpread: 30,
		confBase:       85,
		confSpread:     20,
	},
	models.SlipTypeFuel: {
		vehicleSuffix:  "DEF",
		drivers:        []string{"Chris Taylor", "Emma Davis", "Ryan Miller", "Sophie Clark"},
		locations:      []string{"Shell Station", "BP Garage", "Engen Stop", "Total Fuel"},
		amountBase:     300,
		amountSpread:   2000,
		quantityBase:   20,
		quantitySpread: 100,
		confBase:       85,
		confSpread:     15,
	},
}

// Recognize returns randomized fields for the slip type after the
// configured delay, honoring ctx cancellation while waiting.
func (m *Stub) Recognize(ctx context.Context, _ []byte, slipType models.SlipType) (Fields, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Fields{}, ctx.Err()
		case <-timer.C:
		}
	}

	p, ok := stubProfiles[slipType]
	if !ok {
		p = stubProfiles[models.SlipTypeLoading]
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return Fields{
		TripNumber:    fmt.Sprintf("TRP-2024-%03d", m.rnd.Intn(1000)),
		VehicleNumber: fmt.Sprintf("GP %d %s", m.rnd.Intn(900)+100, p.vehicleSuffix),
		DriverName:    p.drivers[m.rnd.Intn(len(p.drivers))],
		Amount:        float64(m.rnd.Intn(p.amountSpread) + p.amountBase),
		Quantity:      float64(m.rnd.Intn(p.quantitySpread) + p.quantityBase),
		Location:      p.locations[m.rnd.Intn(len(p.locations))],
		Date:          models.Today(),
		Confidence:    float64(m.rnd.Intn(p.confSpread) + p.confBase),
	}, nil
}
