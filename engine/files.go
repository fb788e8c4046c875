package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	stori "github.com/cgcardona/Stori-sub010"
)

// ReadProject loads a project snapshot from disk. YAML is the native format
// with JSON accepted as well, and region source files are resolved relative
// to the project file and decoded into clips. A region whose source file
// cannot be read keeps a nil clip and plays silence; loading never fails on
// missing audio alone.
func ReadProject(path string) (*stori.Project, []error, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading project: %w", err)
	}
	var project stori.Project
	if errJSON := json.Unmarshal(b, &project); errJSON != nil {
		if errYaml := yaml.Unmarshal(b, &project); errYaml != nil {
			return nil, nil, fmt.Errorf("unmarshaling project: %v / %v", errYaml, errJSON)
		}
	}
	if err := project.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid project: %w", err)
	}
	warnings := loadClips(&project, filepath.Dir(path))
	return &project, warnings, nil
}

// WriteProject saves a project snapshot, as JSON when the path ends in
// .json and YAML otherwise.
func WriteProject(path string, project *stori.Project) error {
	var contents []byte
	var err error
	if filepath.Ext(path) == ".json" {
		contents, err = json.Marshal(project)
	} else {
		contents, err = yaml.Marshal(project)
	}
	if err != nil {
		return fmt.Errorf("marshaling project: %w", err)
	}
	if err := os.WriteFile(path, contents, 0644); err != nil {
		return fmt.Errorf("writing project: %w", err)
	}
	return nil
}

func loadClips(project *stori.Project, dir string) []error {
	var warnings []error
	for ti := range project.Tracks {
		track := &project.Tracks[ti]
		for ri := range track.Regions {
			r := &track.Regions[ri]
			if r.File == "" || r.Clip != nil {
				continue
			}
			path := r.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			clip, err := readClip(path)
			if err != nil {
				warnings = append(warnings, fmt.Errorf("region %q: %w", r.Name, err))
				continue
			}
			clip.Name = r.Name
			r.Clip = clip
		}
	}
	return warnings
}

func readClip(path string) (*stori.AudioClip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	clip, err := stori.DecodeWav(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return clip, nil
}
