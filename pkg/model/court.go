package model

import "time"

type Surface string

const (
	SurfaceClay   Surface = "clay"
	SurfaceHard   Surface = "hard"
	SurfaceGrass  Surface = "grass"
	SurfaceCarpet Surface = "carpet"
)

// Court is a bookable resource. Courts are read-mostly and managed outside
// the booking flow.
type Court struct {
	ID        string    `yaml:"id" json:"id" bson:"_id" validate:"required,max=64"`
	ClubID    string    `yaml:"-" json:"club_id" bson:"club_id" validate:"required,max=64"`
	Name      string    `yaml:"name" json:"name" bson:"name" validate:"required,min=1,max=80"`
	Surface   Surface   `yaml:"surface" json:"surface" bson:"surface" validate:"required,oneof=clay hard grass carpet"`
	Indoor    bool      `yaml:"indoor" json:"indoor" bson:"indoor"`
	Active    bool      `yaml:"active" json:"active" bson:"active"`
	CreatedAt time.Time `yaml:"-" json:"created_at" bson:"created_at"`
}
