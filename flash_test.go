package openwire

import (
	"encoding/json"
	"testing"
)

func TestFlashLevelConstants(t *testing.T) {
	if FlashSuccess != "success" {
		t.Errorf("FlashSuccess = %q, want %q", FlashSuccess, "success")
	}
	if FlashError != "error" {
		t.Errorf("FlashError = %q, want %q", FlashError, "error")
	}
	if FlashWarning != "warning" {
		t.Errorf("FlashWarning = %q, want %q", FlashWarning, "warning")
	}
	if FlashInfo != "info" {
		t.Errorf("FlashInfo = %q, want %q", FlashInfo, "info")
	}
}

func TestQueuedEffects(t *testing.T) {
	c := New("demo")
	c.Flash(FlashSuccess, "Item saved")
	c.Dispatch("cart:updated", map[string]any{"items": 2})
	c.Redirect("/checkout")
	c.Effect("confetti", nil)

	want := []string{EffectFlash, EffectDispatch, EffectRedirect, "confetti"}
	if len(c.effects) != len(want) {
		t.Fatalf("len(effects) = %d, want %d", len(c.effects), len(want))
	}
	for i, typ := range want {
		if c.effects[i].Type != typ {
			t.Errorf("effects[%d].Type = %q, want %q", i, c.effects[i].Type, typ)
		}
	}

	flash := c.effects[0].Data.(map[string]any)
	if flash["level"] != FlashSuccess || flash["message"] != "Item saved" {
		t.Errorf("flash data = %v", flash)
	}
	redirect := c.effects[2].Data.(map[string]any)
	if redirect["url"] != "/checkout" {
		t.Errorf("redirect data = %v", redirect)
	}
}

func TestEffectJSON(t *testing.T) {
	tests := []struct {
		name   string
		effect Effect
		want   string
	}{
		{"no data", Effect{Type: "confetti"}, `{"type":"confetti"}`},
		{"flash", Effect{Type: EffectFlash, Data: map[string]any{"level": "info", "message": "hi"}}, `{"type":"flash","data":{"level":"info","message":"hi"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.effect)
			if err != nil {
				t.Fatal(err)
			}
			if string(raw) != tt.want {
				t.Errorf("json = %s, want %s", raw, tt.want)
			}
		})
	}
}

func TestEffectsNotDehydrated(t *testing.T) {
	c := New("demo").Stateful()
	c.Set("count", 1)
	c.Flash(FlashInfo, "hello")

	if _, ok := c.dehydrate()["effects"]; ok {
		t.Error("effects leaked into state")
	}
	if len(c.dehydrate()) != 1 {
		t.Errorf("dehydrate() = %v", c.dehydrate())
	}
}
