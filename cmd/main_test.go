package main

import (
	"html/template"
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedTemplatesParse(t *testing.T) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	for _, name := range []string{"layout.html", "lottery_interface.html"} {
		if tmpl.Lookup(name) == nil {
			t.Errorf("Expected template %s to be embedded", name)
		}
	}
}

func TestPointerUpdatesAreThrottled(t *testing.T) {
	data, err := fs.ReadFile(assetsFS, "assets/lottery.js")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	script := string(data)
	move := strings.Index(script, "'mousemove'")
	if move < 0 {
		t.Fatal("Expected a mousemove listener")
	}
	frame := strings.Index(script[move:], "requestAnimationFrame(")
	post := strings.Index(script[move:], "'/api/scene/pointer'")
	if frame < 0 || post < frame {
		t.Error("Expected pointer updates to be sent from an animation frame callback")
	}
}

func TestCorsConfig(t *testing.T) {
	if c := corsConfig([]string{"*"}); !c.AllowAllOrigins || len(c.AllowOrigins) != 0 {
		t.Errorf("Expected all origins for *, but got %+v", c)
	}
	if c := corsConfig([]string{"http://a"}); c.AllowAllOrigins || c.AllowOrigins[0] != "http://a" {
		t.Errorf("Expected the listed origin, but got %+v", c)
	}
}
