package crew

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Persona configures one LLM-backed agent role.
type Persona struct {
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// TaskBrief configures one stage's instructions.
type TaskBrief struct {
	Description    string `yaml:"description"`
	ExpectedOutput string `yaml:"expected_output"`
}

// Configs holds the agent personas and task briefs, loadable from a config
// dir (agents.yaml, tasks.yaml) with embedded defaults as fallback.
type Configs struct {
	Agents map[string]Persona   `yaml:"agents"`
	Tasks  map[string]TaskBrief `yaml:"tasks"`
}

const defaultAgentsYAML = `
editor_in_chief_agent:
  role: Editor-in-Chief
  goal: Pick the single most damning, verifiable story of the day from raw field intelligence.
  backstory: >
    A veteran newsroom editor who has watched a hundred scandals get buried.
    You only run stories with hard numbers, named officials, and a live
    source link. Hype without evidence goes in the bin.
framing_strategist_agent:
  role: Framing Strategist
  goal: Decide the sharpest honest angle of attack for the chosen story.
  backstory: >
    A political communication strategist who turns dry findings into
    narratives people cannot look away from, without ever bending a fact.
ghostwriter_agent:
  role: Ghostwriter
  goal: Write a devastating long-form accountability post from the strategy and research.
  backstory: >
    The unseen pen behind the channel's most-shared posts. Authoritative,
    analytical, brutally honest, with empathy for the ordinary citizen.
thread_architect_agent:
  role: Thread Architect
  goal: Split the long draft into a tight, numbered thread that each stand alone.
  backstory: >
    You know exactly where a reader's thumb pauses. Every part ends on a
    hook; the first part carries the whole story on its own.
`

const defaultTasksYAML = `
curate_top_story:
  description: >
    Review the scraped field intelligence below and pick the ONE story that
    most clearly shows a failure of governance, with hard numbers and a
    named responsible official. Avoid any story whose source URL appears in
    the already-covered list.
  expected_output: >
    A JSON object: {"headline": "...", "key_fact": "...",
    "primary_politician_involved": "...", "url": "..."} — just the JSON.
develop_framing_strategy_task:
  description: >
    Given the curated story and the deep research report, define the angle
    of attack: the core claim, the three strongest supporting facts, the
    direct question to put to the responsible leadership, and the tone.
  expected_output: A short framing brief in plain prose.
write_thread_draft:
  description: >
    Write the full long-form accountability post following the framing
    brief. Name names, cite the hard numbers from the research, and end
    with a direct question and a call to action.
  expected_output: The complete post text, 3-5 paragraphs.
split_into_thread:
  description: >
    Split the draft into a thread of 2-6 tweets. Keep each part under 270
    characters, end intermediate parts on a hook, and put the hashtags only
    in the final part.
  expected_output: >
    A JSON object: {"tweets": ["...", "..."], "media_path": ""} — just the JSON.
`

// LoadConfigs reads agents.yaml and tasks.yaml from dir when they exist,
// falling back to the embedded defaults for anything missing.
func LoadConfigs(dir string) (Configs, error) {
	cfg := Configs{
		Agents: map[string]Persona{},
		Tasks:  map[string]TaskBrief{},
	}
	if err := yaml.Unmarshal([]byte(defaultAgentsYAML), &cfg.Agents); err != nil {
		return Configs{}, fmt.Errorf("parse default agents: %w", err)
	}
	if err := yaml.Unmarshal([]byte(defaultTasksYAML), &cfg.Tasks); err != nil {
		return Configs{}, fmt.Errorf("parse default tasks: %w", err)
	}

	if dir != "" {
		if err := overlayYAML(filepath.Join(dir, "agents.yaml"), &cfg.Agents); err != nil {
			return Configs{}, err
		}
		if err := overlayYAML(filepath.Join(dir, "tasks.yaml"), &cfg.Tasks); err != nil {
			return Configs{}, err
		}
	}
	return cfg, nil
}

func overlayYAML[T any](path string, dst *map[string]T) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	overrides := map[string]T{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for name, v := range overrides {
		(*dst)[name] = v
	}
	return nil
}

// systemPrompt renders a persona into a system message.
func (p Persona) systemPrompt() string {
	return fmt.Sprintf("You are the %s. %s Your goal: %s", p.Role, p.Backstory, p.Goal)
}
