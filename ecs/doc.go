// Package ecs provides ECS adapters for funkin's beat events.
//
// The primary adapter is [NewDonburiStore], which bridges step and beat hits
// from a [funkin.BeatState] into a [Donburi] world as typed events.
// Subscribe to [BeatEventType] in your ECS systems to receive them.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	stage.Beat.Store = store
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
