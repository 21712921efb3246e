package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goldenhour-labs/goldenhour/internal/corridor"
)

var (
	beaconsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldenhour_beacons_received_total",
		Help: "Total number of MQTT beacon messages received.",
	})
	beaconsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldenhour_beacons_rejected_total",
		Help: "Total number of malformed MQTT beacon messages dropped.",
	})
	beaconsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldenhour_beacons_suppressed_total",
		Help: "Total number of beacon detections suppressed by track cooldown.",
	})
)

// Beacon is one GPS position report from an emergency vehicle transponder.
// Used when no camera coverage is available.
type Beacon struct {
	VehicleID string  `json:"vehicleId"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Heading   float64 `json:"heading"` // degrees clockwise from north
	Speed     float64 `json:"speed"`   // m/s
	Timestamp float64 `json:"ts"`
}

func parseBeacon(payload []byte) (Beacon, error) {
	var b Beacon
	if err := json.Unmarshal(payload, &b); err != nil {
		return Beacon{}, fmt.Errorf("invalid beacon JSON: %w", err)
	}
	if b.VehicleID == "" {
		return Beacon{}, fmt.Errorf("beacon missing vehicleId")
	}
	return b, nil
}

// Detection converts the beacon into a normalized gps_fallback detection.
// Beacons carry no camera geometry, so the zone defaults to CENTER and a
// nominal confidence of 1 is used: a transponder fix is not a classifier
// score.
func (b Beacon) Detection() corridor.Detection {
	rad := b.Heading * math.Pi / 180
	return corridor.Detection{
		Zone:       corridor.ZoneCenter,
		Confidence: 1.0,
		Timestamp:  b.Timestamp,
		TrackID:    trackIDForVehicle(b.VehicleID),
		Direction:  headingToDirection(b.Heading, b.Speed),
		Velocity: corridor.Velocity{
			DX: b.Speed * math.Sin(rad),
			DY: b.Speed * math.Cos(rad),
		},
		Mode: corridor.ModeGPSFallback,
	}
}

// trackIDForVehicle derives a stable positive track id from the vehicle
// id so the gateway's per-track cooldown applies to beacons too.
func trackIDForVehicle(vehicleID string) int {
	h := fnv.New32a()
	h.Write([]byte(vehicleID))
	return int(h.Sum32()&0x7fffffff) + 1
}

func headingToDirection(deg, speed float64) string {
	if speed < 0.5 {
		return corridor.DirectionStationary
	}
	deg = math.Mod(math.Mod(deg, 360)+360, 360)
	switch {
	case deg < 45 || deg >= 315:
		return corridor.DirectionNorth
	case deg < 135:
		return corridor.DirectionEast
	case deg < 225:
		return corridor.DirectionSouth
	default:
		return corridor.DirectionWest
	}
}

// MQTTIngester subscribes to a beacon topic and feeds parsed beacons
// through the gateway. It reconnects automatically and resubscribes on
// every (re)connect.
type MQTTIngester struct {
	gateway   *Gateway
	brokerURL string
	topic     string
}

func NewMQTTIngester(gateway *Gateway, brokerURL, topic string) *MQTTIngester {
	return &MQTTIngester{gateway: gateway, brokerURL: brokerURL, topic: topic}
}

// Run connects to the broker and blocks until ctx is cancelled.
func (m *MQTTIngester) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.brokerURL)
	opts.SetClientID("goldenhour-" + time.Now().Format("20060102150405"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, message mqtt.Message) {
		m.handleMessage(message.Payload())
	})
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(m.topic, 0, nil)
		token.Wait()
		if token.Error() != nil {
			log.Printf("mqtt subscribe error: %v", token.Error())
			return
		}
		log.Printf("beacon ingester subscribed to topic=%s", m.topic)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt connection failed: %w", token.Error())
	}
	log.Printf("beacon ingester running, mqtt=%s", m.brokerURL)

	<-ctx.Done()
	client.Disconnect(250)
	return nil
}

func (m *MQTTIngester) handleMessage(payload []byte) {
	beaconsReceived.Inc()
	b, err := parseBeacon(payload)
	if err != nil {
		beaconsRejected.Inc()
		log.Printf("dropping beacon: %v", err)
		return
	}
	res := m.gateway.Offer(b.Detection())
	if !res.Accepted {
		beaconsSuppressed.Inc()
		return
	}
	log.Printf("beacon from %s started cascade %d", b.VehicleID, res.IncidentID)
}
