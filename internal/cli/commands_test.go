// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fritzduchardt/fabric-ui/internal/config"
)

// fakeFabric serves the list endpoints and streams a fixed answer.
type fakeFabric struct {
	mu       sync.Mutex
	prompts  []map[string]interface{}
	status   int
	frames   []string
	patterns []string
}

func (f *fakeFabric) handler() http.Handler {
	mux := http.NewServeMux()
	names := func(items []string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			if f.status != 0 {
				http.Error(w, "boom", f.status)
				return
			}
			_ = json.NewEncoder(w).Encode(items)
		}
	}
	mux.Handle("/patterns/names", names(f.patterns))
	mux.Handle("/models/names", names([]string{"o4-mini", "deepseek-reasoner"}))
	mux.Handle("/obsidian/files", names([]string{"Health/Sleep.md", "Work/Plan.md"}))
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Prompts []map[string]interface{} `json:"prompts"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.mu.Lock()
		f.prompts = append(f.prompts, payload.Prompts...)
		f.mu.Unlock()

		if f.status != 0 {
			http.Error(w, "boom", f.status)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range f.frames {
			fmt.Fprintf(w, "data: {\"content\":%q}\n\n", frame)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	return mux
}

func (f *fakeFabric) Prompts() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.prompts...)
}

var _ = Describe("Commands", func() {
	var (
		fabric *fakeFabric
		server *httptest.Server
		tmpDir string
	)

	setenv := func(key, value string) {
		prev, had := os.LookupEnv(key)
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(func() {
			if had {
				os.Setenv(key, prev)
			} else {
				os.Unsetenv(key)
			}
		})
	}

	unsetenv := func(key string) {
		prev, had := os.LookupEnv(key)
		Expect(os.Unsetenv(key)).To(Succeed())
		DeferCleanup(func() {
			if had {
				os.Setenv(key, prev)
			}
		})
	}

	run := func(stdin io.Reader, args ...string) (string, string, error) {
		cmd := NewRootCmd()
		var out, errOut bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetIn(stdin)
		cmd.SetArgs(append([]string{"--base-url", server.URL}, args...))
		err := cmd.ExecuteContext(context.Background())
		return out.String(), errOut.String(), err
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "fabric-ui-cli-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, tmpDir)

		setenv(config.EnvConfigDir, tmpDir)
		unsetenv("FABRIC_UI_BASE_URL")
		setenv("FABRIC_UI_RETRY_MAX_ATTEMPTS", "2")
		setenv("FABRIC_UI_RETRY_DELAY_SECS", "0")

		fabric = &fakeFabric{
			patterns: []string{"general", "summarize"},
			frames:   []string{"Hel", "lo"},
		}
		server = httptest.NewServer(fabric.handler())
		DeferCleanup(server.Close)
	})

	Describe("list commands", func() {
		It("prints the patterns one per line", func() {
			out, _, err := run(strings.NewReader(""), "patterns")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("general\nsummarize\n"))
		})

		It("prints the models", func() {
			out, _, err := run(strings.NewReader(""), "models")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("o4-mini\ndeepseek-reasoner\n"))
		})

		It("prints the obsidian files", func() {
			out, _, err := run(strings.NewReader(""), "files")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Work/Plan.md"))
		})

		It("reports an empty list on stderr", func() {
			fabric.patterns = []string{}
			out, errOut, err := run(strings.NewReader(""), "patterns")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeEmpty())
			Expect(errOut).To(ContainSubstring("No patterns found."))
		})

		It("fails when the server answers with an error", func() {
			fabric.status = http.StatusInternalServerError
			_, _, err := run(strings.NewReader(""), "patterns")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("could not list patterns"))
			Expect(err.Error()).To(ContainSubstring("HTTP 500"))
		})
	})

	Describe("ask", func() {
		It("streams the answer for the arguments", func() {
			out, _, err := run(strings.NewReader(""), "ask", "--pattern", "summarize", "--file", "none", "hello", "there")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("Hello\n"))

			prompts := fabric.Prompts()
			Expect(prompts).To(HaveLen(1))
			Expect(prompts[0]["userInput"]).To(Equal("hello there"))
			Expect(prompts[0]["patternName"]).To(Equal("summarize"))
			Expect(prompts[0]["obsidianFile"]).To(Equal(""))
		})

		It("reads the prompt from stdin", func() {
			_, _, err := run(strings.NewReader("  from stdin \n"), "ask", "--model", "deepseek-reasoner")
			Expect(err).NotTo(HaveOccurred())

			prompts := fabric.Prompts()
			Expect(prompts).To(HaveLen(1))
			Expect(prompts[0]["userInput"]).To(Equal("from stdin"))
			Expect(prompts[0]["model"]).To(Equal("deepseek-reasoner"))
		})

		It("exits non-zero after the retries are spent", func() {
			fabric.status = http.StatusInternalServerError
			_, errOut, err := run(strings.NewReader(""), "ask", "hi")

			var exitErr *ExitError
			Expect(errors.As(err, &exitErr)).To(BeTrue())
			Expect(exitErr.Code).To(Equal(ExitFailure))
			Expect(fabric.Prompts()).To(HaveLen(2))
			Expect(errOut).To(ContainSubstring("Attempt 1 of 2 failed"))
			Expect(errOut).To(ContainSubstring("Error: HTTP 500 Internal Server Error"))
		})
	})

	Describe("config", func() {
		It("prints the config path", func() {
			out, _, err := run(strings.NewReader(""), "config", "path")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(out)).To(Equal(filepath.Join(tmpDir, "config.toml")))
		})

		It("writes the defaults once", func() {
			_, _, err := run(strings.NewReader(""), "config", "init")
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Join(tmpDir, "config.toml")).To(BeAnExistingFile())

			_, _, err = run(strings.NewReader(""), "config", "init")
			Expect(err).To(MatchError(ContainSubstring("already exists")))

			_, _, err = run(strings.NewReader(""), "config", "init", "--force")
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets and reads back a value", func() {
			_, _, err := run(strings.NewReader(""), "config", "set", "chat.default_pattern", "summarize")
			Expect(err).NotTo(HaveOccurred())

			out, _, err := run(strings.NewReader(""), "config", "get", "chat.default_pattern")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(out)).To(Equal("summarize"))

			data, err := os.ReadFile(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`default_pattern = "summarize"`))
		})

		It("prints lists in the form set accepts", func() {
			out, _, err := run(strings.NewReader(""), "config", "get", "chat.models")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(out)).To(Equal("o4-mini,claude-3-7-sonnet-latest,deepseek-reasoner"))
		})

		It("rejects invalid values", func() {
			_, _, err := run(strings.NewReader(""), "config", "set", "retry.max_attempts", "0")
			Expect(err).To(HaveOccurred())
			Expect(filepath.Join(tmpDir, "config.toml")).NotTo(BeAnExistingFile())
		})

		It("rejects unknown keys", func() {
			_, _, err := run(strings.NewReader(""), "config", "get", "chat.nope")
			Expect(err).To(HaveOccurred())
		})

		It("shows the effective config with flag overrides", func() {
			out, _, err := run(strings.NewReader(""), "config", "show")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("[server]"))
			Expect(out).To(ContainSubstring(server.URL))
		})
	})
})
