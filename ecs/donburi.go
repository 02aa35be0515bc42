// Package ecs provides ECS adapters for funkin.
package ecs

import (
	"github.com/phanxgames/funkin"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// BeatEventType is the Donburi event type for funkin step and beat hits.
var BeatEventType = events.NewEventType[funkin.BeatEvent]()

type donburiStore struct {
	world donburi.World
}

// NewDonburiStore creates a BeatStore backed by a Donburi world.
// Hits are published to BeatEventType and can be consumed with
// events.Subscribe and ProcessEvents.
func NewDonburiStore(world donburi.World) funkin.BeatStore {
	return &donburiStore{world: world}
}

func (s *donburiStore) EmitBeat(event funkin.BeatEvent) {
	BeatEventType.Publish(s.world, event)
}
