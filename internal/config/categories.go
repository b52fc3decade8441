package config

import (
	"fmt"
	"path/filepath"
)

// Category is a known model destination inside the application's models directory.
type Category string

const (
	CategoryCheckpoints Category = "checkpoints_dir"
	CategoryUpscale     Category = "upscale_dir"
	CategoryLoras       Category = "loras_dir"
	CategoryVAE         Category = "vae_dir"
	CategoryEmbeddings  Category = "embeddings_dir"
	CategoryControlNet  Category = "controlnet_dir"
	CategoryCLIP        Category = "clip_dir"
	CategoryCLIPVision  Category = "clip_vision_dir"
	CategoryUNet        Category = "unet_dir"
)

var categoryDirs = map[Category]string{
	CategoryCheckpoints: "checkpoints",
	CategoryUpscale:     "upscale_models",
	CategoryLoras:       "loras",
	CategoryVAE:         "vae",
	CategoryEmbeddings:  "embeddings",
	CategoryControlNet:  "controlnet",
	CategoryCLIP:        "clip",
	CategoryCLIPVision:  "clip_vision",
	CategoryUNet:        "unet",
}

// Subdir returns the folder name under models/ for the category.
func (c Category) Subdir() (string, bool) {
	dir, ok := categoryDirs[c]
	return dir, ok
}

// Categories lists every known category.
func Categories() []Category {
	return []Category{
		CategoryCheckpoints, CategoryUpscale, CategoryLoras, CategoryVAE,
		CategoryEmbeddings, CategoryControlNet, CategoryCLIP, CategoryCLIPVision,
		CategoryUNet,
	}
}

// Destination is either a known Category or an explicitly custom path.
// Exactly one of the two fields is set.
type Destination struct {
	Category Category
	Custom   string
}

// IsCustom reports whether the destination is a literal path rather than a category.
func (d Destination) IsCustom() bool {
	return d.Category == ""
}

func (d Destination) String() string {
	if d.IsCustom() {
		return "custom:" + d.Custom
	}
	return string(d.Category)
}

// ParseDestination maps a raw directory string onto a Destination.
// Unknown keys become custom paths; they are not rejected here.
func ParseDestination(raw string) Destination {
	if _, ok := categoryDirs[Category(raw)]; ok {
		return Destination{Category: Category(raw)}
	}
	return Destination{Custom: raw}
}

// Resolve returns the directory a destination points to within the layout.
// Categories live under models/; custom paths are taken relative to the base
// directory and must not escape it.
func (d Destination) Resolve(l Layout) (string, error) {
	if !d.IsCustom() {
		sub, _ := d.Category.Subdir()
		return filepath.Join(l.Models, sub), nil
	}
	if !filepath.IsLocal(d.Custom) {
		return "", fmt.Errorf("custom destination %q must be a relative path inside %s", d.Custom, l.Base)
	}
	return filepath.Join(l.Base, d.Custom), nil
}
