package packs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/content"
)

// ErrPackNotFound is returned when a pack id is unknown
var ErrPackNotFound = errors.New("pack not found")

// ErrInvalidPack is returned when a pack fails validation on save
var ErrInvalidPack = errors.New("invalid pack")

const maxNameLen = 128

type Pack struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	GameData  *content.GameData `json:"gameData"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rounds    int       `json:"rounds"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p *Pack) Summary() Summary {
	s := Summary{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt}
	if p.GameData != nil {
		s.Rounds = len(p.GameData.Rounds)
	}
	return s
}

type SaveInput struct {
	Name     string
	GameData *content.GameData
}

func (in *SaveInput) validate() error {
	if in == nil {
		return fmt.Errorf("%w: input cannot be nil", ErrInvalidPack)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > maxNameLen {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidPack, maxNameLen)
	}
	if err := in.GameData.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPack, err)
	}
	return nil
}

type GetInput struct {
	ID string
}

type ListInput struct {
}

type ListOutput struct {
	Packs []Summary
}

type DeleteInput struct {
	ID string
}
