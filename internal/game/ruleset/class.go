package ruleset

import (
	"fmt"
	"io/fs"
)

// Class describes the combat-relevant facts of a character class.
//
// Precondition: ID and Name must be non-empty after loading.
type Class struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// DeedDie marks classes that roll a deed die in place of a fixed attack bonus.
	DeedDie bool `yaml:"deed_die"`
	// LuckyWeapon marks classes whose luck applies to a chosen weapon.
	LuckyWeapon bool `yaml:"lucky_weapon"`
}

// LoadClasses reads all .yaml files in dir of fsys and parses each as a Class.
//
// Precondition: dir must be a readable directory in fsys.
// Postcondition: Returns all parsed classes (may be empty slice) or a non-nil error.
func LoadClasses(fsys fs.FS, dir string) ([]*Class, error) {
	files, err := yamlFiles(fsys, dir)
	if err != nil {
		return nil, err
	}
	classes := make([]*Class, 0, len(files))
	for _, p := range files {
		var c Class
		if err := decodeStrict(fsys, p, &c); err != nil {
			return nil, fmt.Errorf("class file: %w", err)
		}
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("class file %s: id and name are required", p)
		}
		classes = append(classes, &c)
	}
	return classes, nil
}
