// Package configwizard is an interactive form that produces a version 1
// config file.
package configwizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/jxwalker/cfcore/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type field struct {
	label string
	hint  string
}

var fields = []field{
	{"general.data_root", ""},
	{"general.download_root", ""},
	{"general.layout", "e.g. {game_id}/{mod_id}, empty for flat"},
	{"api.key_env", "env var holding the API key"},
	{"network.max_redirects", ""},
	{"validation.verify_downloads", "true|false"},
	{"validation.single_pass", "true|false"},
	{"concurrency.dependency_workers", "1 = sequential"},
}

type Wizard struct {
	inputs []textinput.Model
	focus  int
	done   bool
	err    error
	out    []byte
}

// New seeds the form from defaults; a nil defaults uses ~/cfcore roots.
func New(defaults *config.Config) *Wizard {
	if defaults == nil {
		defaults = &config.Config{Version: 1}
		defaults.General.DataRoot = "~/cfcore/data"
		defaults.General.DownloadRoot = "~/cfcore/mods"
	}
	keyEnv := defaults.API.KeyEnv
	if keyEnv == "" {
		keyEnv = config.DefaultKeyEnv
	}
	redirects := defaults.Network.MaxRedirects
	if redirects == 0 {
		redirects = config.DefaultMaxRedirects
	}
	workers := defaults.Concurrency.DependencyWorkers
	if workers == 0 {
		workers = 1
	}
	values := []string{
		defaults.General.DataRoot,
		defaults.General.DownloadRoot,
		defaults.General.Layout,
		keyEnv,
		strconv.Itoa(redirects),
		strconv.FormatBool(defaults.VerifyDownloads()),
		strconv.FormatBool(defaults.Validation.SinglePass),
		strconv.Itoa(workers),
	}
	w := &Wizard{}
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Placeholder = f.hint
		ti.CharLimit = 256
		ti.SetValue(values[i])
		w.inputs = append(w.inputs, ti)
	}
	w.inputs[0].Focus()
	return w
}

func (w *Wizard) Init() tea.Cmd { return textinput.Blink }

func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m, ok := msg.(tea.KeyMsg); ok {
		switch m.String() {
		case "ctrl+c", "esc":
			w.done = true
			w.out = nil
			return w, tea.Quit
		case "enter":
			if w.focus == len(w.inputs)-1 {
				b, err := w.build()
				if err != nil {
					w.err = err
					return w, nil
				}
				w.done = true
				w.out = b
				return w, tea.Quit
			}
			w.move(1)
			return w, nil
		case "tab", "down":
			w.move(1)
			return w, nil
		case "shift+tab", "up":
			w.move(-1)
			return w, nil
		}
	}
	var cmd tea.Cmd
	w.inputs[w.focus], cmd = w.inputs[w.focus].Update(msg)
	return w, cmd
}

func (w *Wizard) move(delta int) {
	w.focus += delta
	if w.focus < 0 {
		w.focus = 0
	}
	if w.focus >= len(w.inputs) {
		w.focus = len(w.inputs) - 1
	}
	for i := range w.inputs {
		if i == w.focus {
			w.inputs[i].Focus()
		} else {
			w.inputs[i].Blur()
		}
	}
}

func (w *Wizard) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("cfcore config init") + "\n")
	b.WriteString("Tab/Shift-Tab to move, Enter on the last field to save, Esc to cancel.\n\n")
	for i, in := range w.inputs {
		marker := " "
		if i == w.focus {
			marker = ">"
		}
		b.WriteString(fmt.Sprintf("%s %-32s %s\n", marker, fields[i].label+":", in.View()))
	}
	if w.err != nil {
		b.WriteString("\n" + errStyle.Render(w.err.Error()) + "\n")
	}
	return b.String()
}

// build renders the form as YAML and checks it loads.
func (w *Wizard) build() ([]byte, error) {
	get := func(i int) string { return strings.TrimSpace(w.inputs[i].Value()) }
	num := func(i int) (int, error) {
		n, err := strconv.Atoi(get(i))
		if err != nil {
			return 0, fmt.Errorf("%s: not a number: %q", fields[i].label, get(i))
		}
		return n, nil
	}
	flag := func(i int) (bool, error) {
		v, err := strconv.ParseBool(get(i))
		if err != nil {
			return false, fmt.Errorf("%s: want true or false, got %q", fields[i].label, get(i))
		}
		return v, nil
	}

	c := config.Config{Version: 1}
	c.General.DataRoot = get(0)
	c.General.DownloadRoot = get(1)
	c.General.Layout = get(2)
	c.API.KeyEnv = get(3)
	var err error
	if c.Network.MaxRedirects, err = num(4); err != nil {
		return nil, err
	}
	verify, err := flag(5)
	if err != nil {
		return nil, err
	}
	c.Validation.VerifyDownloads = &verify
	if c.Validation.SinglePass, err = flag(6); err != nil {
		return nil, err
	}
	if c.Concurrency.DependencyWorkers, err = num(7); err != nil {
		return nil, err
	}
	b, err := yaml.Marshal(&c)
	if err != nil {
		return nil, err
	}
	if _, err := config.Parse(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Done reports whether the form was submitted or cancelled.
func (w *Wizard) Done() bool { return w.done }

// YAML is the submitted config, or nil when the form was cancelled.
func (w *Wizard) YAML() []byte { return w.out }
