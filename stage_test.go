package funkin

import (
	"context"
	"errors"
	"image"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/hajimehoshi/ebiten/v2"
)

const stageYAML = `
assetDir: images
background: "#ffffff"
song:
  bpm: 120
sprites:
  - name: gf
    asset: sheet
    x: 100
    clips:
      - name: danceLeft
        prefix: a
      - name: danceRight
        prefix: b
        indices: [4, 3, 2]
    play: danceLeft
    loop: true
  - name: logo
    asset: sheet
`

func headless(image.Image) *ebiten.Image { return nil }

func newTestStage(t *testing.T, fsys fstest.MapFS, handler BeatHandler) (*Stage, *ManualClock) {
	t.Helper()
	return newTestStageFrom(t, stageYAML, fsys, handler)
}

func newTestStageFrom(t *testing.T, yamlData string, fsys fstest.MapFS, handler BeatHandler) (*Stage, *ManualClock) {
	t.Helper()
	cfg, err := LoadStageConfig([]byte(yamlData))
	if err != nil {
		t.Fatal(err)
	}
	clock := &ManualClock{}
	st, err := NewStage(context.Background(), cfg, NewAssetLoader(fsys, cfg.AssetDir), clock, handler, WithImageFactory(headless))
	if err != nil {
		t.Fatal(err)
	}
	return st, clock
}

func TestNewStage(t *testing.T) {
	st, _ := newTestStage(t, testAssetFS(t), nil)

	if n := len(st.Scene.Sprites()); n != 2 {
		t.Fatalf("scene sprites = %d, want 2", n)
	}
	gf, ok := st.Sprite("gf")
	if !ok {
		t.Fatal("gf missing")
	}
	if gf.X != 100 || gf.Player().Current() != "danceLeft" || !gf.Player().Looping() {
		t.Errorf("gf at %v playing %q loop=%v", gf.X, gf.Player().Current(), gf.Player().Looping())
	}
	if got := gf.Player().Clips().Names(); !reflect.DeepEqual(got, []string{"danceLeft", "danceRight"}) {
		t.Errorf("gf clips = %v", got)
	}
	right, _ := gf.Player().Clips().Clip("danceRight")
	if got := right.Frames(); !reflect.DeepEqual(got, []int{4, 3, 2}) {
		t.Errorf("danceRight frames = %v", got)
	}

	logo, _ := st.Sprite("logo")
	if got := logo.Player().Clips().Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("logo clips = %v, want every atlas span", got)
	}
	if logo.Player().Current() != "" {
		t.Errorf("logo playing %q, want nothing", logo.Player().Current())
	}
	if st.Scene.ClearColor != ColorWhite {
		t.Errorf("ClearColor = %+v, want white", st.Scene.ClearColor)
	}
	if st.Conductor.BPM() != 120 {
		t.Errorf("conductor bpm = %v", st.Conductor.BPM())
	}
}

func TestStagePlay(t *testing.T) {
	st, _ := newTestStage(t, testAssetFS(t), nil)

	if err := st.Play("logo", "b", false); err != nil {
		t.Fatal(err)
	}
	if err := st.Play("logo", "bump", false); !errors.Is(err, ErrUnknownAnimation) {
		t.Errorf("unknown clip = %v, want ErrUnknownAnimation", err)
	}
	if err := st.Play("bf", "idle", false); err == nil {
		t.Error("unknown sprite accepted")
	}
	if _, ok := st.Sprite("bf"); ok {
		t.Error("Sprite(bf) found")
	}
}

func TestStageBeatDrivesHandler(t *testing.T) {
	var beats []int
	var st *Stage
	handler := BeatFunc(func(beat int) {
		beats = append(beats, beat)
		_ = st.Play("logo", "a", false)
	})
	st, clock := newTestStage(t, testAssetFS(t), handler)

	for clock.Ms <= 1000 {
		st.Scene.Step(DefaultFrameDuration)
		clock.Ms += 25
	}
	if !reflect.DeepEqual(beats, []int{1, 2}) {
		t.Errorf("beats = %v, want [1 2]", beats)
	}
	logo, _ := st.Sprite("logo")
	if logo.Player().Current() != "a" {
		t.Errorf("logo playing %q after beat, want a", logo.Player().Current())
	}
}

func TestStageReloadAsset(t *testing.T) {
	fsys := testAssetFS(t)
	st, _ := newTestStage(t, fsys, nil)

	fsys["images/sheet.xml"] = &fstest.MapFile{Data: []byte(`<TextureAtlas>
		<SubTexture name="a0000" x="0" y="0" width="4" height="4"/>
		<SubTexture name="a0001" x="4" y="0" width="4" height="4"/>
		<SubTexture name="a0002" x="8" y="0" width="4" height="4"/>
		<SubTexture name="b0000" x="12" y="0" width="4" height="4"/>
	</TextureAtlas>`)}

	if err := st.ReloadAsset("sheet"); err != nil {
		t.Fatal(err)
	}
	gf, _ := st.Sprite("gf")
	if gf.Atlas.FrameCount != 4 {
		t.Errorf("FrameCount after reload = %d, want 4", gf.Atlas.FrameCount)
	}
	left, _ := gf.Player().Clips().Clip("danceLeft")
	if got := left.Frames(); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("danceLeft after reload = %v, want [0 1]", got)
	}
	if gf.Player().Current() != "danceLeft" {
		t.Errorf("gf playing %q after reload", gf.Player().Current())
	}
}

func TestStageReloadAssetBreaks(t *testing.T) {
	fsys := testAssetFS(t)
	st, _ := newTestStage(t, fsys, nil)

	fsys["images/sheet.xml"] = &fstest.MapFile{Data: []byte(`<TextureAtlas>
		<SubTexture name="z0000" x="0" y="0" width="4" height="4"/>
	</TextureAtlas>`)}
	if err := st.ReloadAsset("sheet"); !errors.Is(err, ErrUnknownAnimation) {
		t.Errorf("ReloadAsset = %v, want ErrUnknownAnimation", err)
	}
}

func TestStageReloadAssetIsAllOrNothing(t *testing.T) {
	const twoSpritesYAML = `
assetDir: images
sprites:
  - name: gf
    asset: sheet
    clips:
      - name: left
        prefix: a
    play: left
  - name: dad
    asset: sheet
    clips:
      - name: pose
        prefix: b
    play: pose
`
	fsys := testAssetFS(t)
	st, _ := newTestStageFrom(t, twoSpritesYAML, fsys, nil)
	gf, _ := st.Sprite("gf")
	dad, _ := st.Sprite("dad")
	gfAtlas, gfPlayer := gf.Atlas, gf.Player()
	dadAtlas, dadPlayer := dad.Atlas, dad.Player()

	// gf's animation survives the edit, dad's does not.
	fsys["images/sheet.xml"] = &fstest.MapFile{Data: []byte(`<TextureAtlas>
		<SubTexture name="a0000" x="0" y="0" width="4" height="4"/>
		<SubTexture name="a0001" x="4" y="0" width="4" height="4"/>
		<SubTexture name="c0000" x="8" y="0" width="4" height="4"/>
	</TextureAtlas>`)}

	if err := st.ReloadAsset("sheet"); !errors.Is(err, ErrUnknownAnimation) {
		t.Fatalf("ReloadAsset = %v, want ErrUnknownAnimation", err)
	}
	if gf.Atlas != gfAtlas || gf.Player() != gfPlayer {
		t.Error("gf was rebuilt although the reload failed")
	}
	if dad.Atlas != dadAtlas || dad.Player() != dadPlayer {
		t.Error("dad was rebuilt although the reload failed")
	}
	if gf.Atlas.FrameCount != 5 || dad.Atlas.FrameCount != 5 {
		t.Errorf("FrameCount gf=%d dad=%d, want 5 5", gf.Atlas.FrameCount, dad.Atlas.FrameCount)
	}

	cached, err := st.loader.Atlas(st.loader.AtlasPath("sheet"))
	if err != nil {
		t.Fatal(err)
	}
	if cached.FrameCount != 5 {
		t.Errorf("cached FrameCount = %d, want the previous parse (5)", cached.FrameCount)
	}
}

func TestStageReloadAssetMalformedKeepsState(t *testing.T) {
	fsys := testAssetFS(t)
	st, _ := newTestStage(t, fsys, nil)
	gf, _ := st.Sprite("gf")
	before := gf.Atlas

	fsys["images/sheet.xml"] = &fstest.MapFile{Data: []byte(`<TextureAtlas>
		<SubTexture name="a0000" x="0" y="0" width="4" height="4"/>
		<SubTexture name="a0000" x="4" y="0" width="4" height="4"/>
	</TextureAtlas>`)}

	if err := st.ReloadAsset("sheet"); !errors.Is(err, ErrMalformedAtlasRecord) {
		t.Fatalf("ReloadAsset = %v, want ErrMalformedAtlasRecord", err)
	}
	if gf.Atlas != before {
		t.Error("gf atlas replaced after a failed reload")
	}
	if !st.loader.Cached(st.loader.AtlasPath("sheet")) {
		t.Error("previous parse dropped from the cache")
	}
}

func TestStageAssetForPath(t *testing.T) {
	st, _ := newTestStage(t, testAssetFS(t), nil)
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"images/sheet.xml", "sheet", true},
		{"images/sheet.png", "sheet", true},
		{"images/idle.xml", "", false},
		{"title.yaml", "", false},
	}
	for _, tt := range tests {
		got, ok := st.AssetForPath(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("AssetForPath(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewStageMissingAsset(t *testing.T) {
	cfg, err := LoadStageConfig([]byte("sprites:\n  - asset: nowhere\n"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewStage(context.Background(), cfg, NewAssetLoader(fstest.MapFS{}, ""), &ManualClock{}, nil, WithImageFactory(headless))
	if err == nil {
		t.Fatal("stage built without its asset")
	}
}

func TestBuildClipsUnknownPrefix(t *testing.T) {
	atlas := mustParse(t, twoAnimXML, ParseOptions{})
	_, err := BuildClips(atlas, SpriteConfig{Name: "gf", Clips: []ClipConfig{{Name: "idle", Prefix: "idle"}}}, DefaultFrameDuration)
	if !errors.Is(err, ErrUnknownAnimation) {
		t.Errorf("BuildClips = %v, want ErrUnknownAnimation", err)
	}
}

func TestBuildConductor(t *testing.T) {
	c, err := BuildConductor(SongConfig{BPM: 120, TempoChanges: []TempoChange{{Step: 16, BPM: 240}}})
	if err != nil {
		t.Fatal(err)
	}
	c.Tick(2125)
	if c.Step() != 18 {
		t.Errorf("step at 2125ms = %d, want 18", c.Step())
	}
	if _, err := BuildConductor(SongConfig{BPM: 0}); !errors.Is(err, ErrInvalidBPM) {
		t.Errorf("BuildConductor(bpm 0) = %v, want ErrInvalidBPM", err)
	}
}
