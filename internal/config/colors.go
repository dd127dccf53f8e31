package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"valgkart/internal/color"
)

// 文档注释：颜色文件格式
// 背景：parties 为有序映射（图例按文件中的顺序输出），因此先解码为 yaml.Node 再逐对读取。
//
//	parties:
//	  Arbeiderpartiet: "#d62728"
//	palettes:
//	  Arbeiderpartiet: Reds_03
//	definitions:
//	  Reds_03: ["#fee0d2", "#fc9272", "#de2d26"]
//	fallback: "#262626"
//	default_palette: viridis
//	other_label: Andre
type colorFile struct {
	Parties        yaml.Node           `yaml:"parties"`
	Palettes       map[string]string   `yaml:"palettes"`
	Definitions    map[string][]string `yaml:"definitions"`
	Fallback       string              `yaml:"fallback"`
	DefaultPalette string              `yaml:"default_palette"`
	OtherLabel     string              `yaml:"other_label"`
}

// ParseColors：解析颜色文件；未出现的部分沿用内置表
func ParseColors(data []byte) (color.Table, error) {
	t := color.Default()
	var f colorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return t, fmt.Errorf("parse color file: %w", err)
	}
	if f.Parties.Kind != 0 {
		if f.Parties.Kind != yaml.MappingNode {
			return t, fmt.Errorf("parse color file: parties must be a mapping")
		}
		parties := make([]color.PartyColor, 0, len(f.Parties.Content)/2)
		for i := 0; i+1 < len(f.Parties.Content); i += 2 {
			k, v := f.Parties.Content[i], f.Parties.Content[i+1]
			parties = append(parties, color.PartyColor{Party: k.Value, Color: v.Value})
		}
		t.Parties = parties
	}
	if f.Palettes != nil {
		t.Palettes = f.Palettes
	}
	for name, stops := range f.Definitions {
		t.Definitions[name] = stops
	}
	if f.Fallback != "" {
		t.Fallback = f.Fallback
	}
	if f.DefaultPalette != "" {
		t.DefaultPalette = f.DefaultPalette
	}
	if f.OtherLabel != "" {
		t.OtherLabel = f.OtherLabel
	}
	return t, nil
}

// LoadColors：path 为空时返回内置表
func LoadColors(path string) (color.Table, error) {
	if path == "" {
		return color.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return color.Table{}, err
	}
	return ParseColors(data)
}

// Resolver：读取颜色文件并构造解析器
func (c Config) Resolver() (*color.Resolver, error) {
	t, err := LoadColors(c.PartyColorsFile)
	if err != nil {
		return nil, err
	}
	return color.New(t)
}
