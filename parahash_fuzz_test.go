package main

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func FuzzCategoryFromPath(f *testing.F) {
	f.Add("/train/spam")
	f.Add("/train/")
	f.Add("/train/a/b")
	f.Add("/train/bad!name")

	f.Fuzz(func(t *testing.T, path string) {
		if !strings.HasPrefix(path, "/train/") {
			return
		}
		name, ok := categoryFromPath(path, "/train/")
		if !ok {
			if name != "" {
				t.Fatalf("rejected path %q returned name %q", path, name)
			}
			return
		}
		if name == "" || "/train/"+name != path {
			t.Fatalf("accepted path %q returned name %q", path, name)
		}
	})
}

func FuzzPredictHandlerBody(f *testing.F) {
	f.Add("free money now")
	f.Add("")
	f.Add("\xff\xfe")

	api, _ := newTestAPI(f, testServiceConfig())
	_ = api.classifier.Train("spam", "buy now limited offer free money")
	_ = api.classifier.Train("ham", "see you later at the team meeting")
	h := http.HandlerFunc(api.PredictHandler)

	f.Fuzz(func(t *testing.T, text string) {
		rr := postForm(h, "/predict", url.Values{"text": {text}})
		switch rr.Code {
		case http.StatusOK, http.StatusBadRequest:
		default:
			t.Fatalf("unexpected status %d for %q", rr.Code, text)
		}
		if text == "" && rr.Code != http.StatusBadRequest {
			t.Fatalf("empty field accepted with status %d", rr.Code)
		}
	})
}
