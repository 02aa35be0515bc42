// Package funkin is the beat-synced sprite layer of a rhythm game built on
// [Ebitengine].
//
// It reads Sparrow sprite sheets, turns their frames into named animation
// clips, and keeps animations in time with the music through a [Conductor]
// that maps song position to steps and beats.
//
// # Quick start
//
// A [Stage] builds everything from a YAML description and a playback clock:
//
//	cfg, _ := funkin.LoadStageConfigFile(os.DirFS("."), "title.yaml")
//	loader := funkin.NewAssetLoader(os.DirFS("."), cfg.AssetDir)
//	stage, _ := funkin.NewStage(ctx, cfg, loader,
//		funkin.AudioPlayerClock{Player: music}, handler)
//	funkin.Run(stage.Scene, funkin.RunConfig{Title: "Funkin'"})
//
// handler is any [BeatHandler]; OnBeatHit is called once per beat, which is
// where dance and bump animations are started.
//
// # Sprite sheets
//
// [ParseSparrow] decodes a TextureAtlas document into an [AtlasData]: a
// region per frame and an [AnimationSpan] per run of frames sharing an
// animation name. Frames are numbered globally in document order, so a
// filtered parse keeps the indices of the full one:
//
//	atlas, err := funkin.ParseSparrow(data, funkin.ParseOptions{Filter: "gfDance"})
//
// Animation names come from frame names with the four-digit counter removed.
// Set [ParseOptions.GroupKey] for exporters that name frames differently.
//
// # Clips
//
// A [ClipBuilder] registers clips from spans or explicit index lists and
// builds an immutable [ClipSet]. An [AnimationPlayer] plays one clip at a
// time and an [AnimatedSprite] draws the player's current frame.
//
//	b := funkin.NewClipBuilder()
//	b.RegisterFromAtlas(atlas, "danceLeft", "gfDance", []int{30, 0, 1, 2})
//	sprite := funkin.NewAnimatedSprite("gf", img, atlas, b.Build(), 900, 350)
//	sprite.Play("danceLeft", false)
//
// # Timing
//
// [Conductor.Tick] recomputes step and beat for a position in milliseconds,
// honouring a timeline of [BpmChangeEvent] values. A [BeatState] polls a
// [PlaybackClock] once per tick and fires step and beat hits exactly once
// each, catching up on every step crossed since the previous tick.
//
// # Debug mode
//
// [Scene.SetDebugMode] logs beat hits, slow ticks and atlas regions that
// fall outside their image to stderr. [Watcher] reports edited sprite sheets
// so [Stage.ReloadAsset] can pick them up without a restart.
//
// # ECS
//
// The funkin/ecs sub-module forwards step and beat hits into a [Donburi]
// world; see [BeatStore].
//
// [Ebitengine]: https://ebitengine.org
// [Donburi]: https://github.com/yohamta/donburi
package funkin
