package game

import "github.com/zeusync/tickstate/internal/core/models"

// Integrate advances every entity that has both a Position and a Velocity.
type Integrate struct{}

func (Integrate) Update(s *models.Store) {
	for e := range s.Entities() {
		v, ok := models.Get[Velocity](s, e)
		if !ok {
			continue
		}
		if p, ok := models.Get[Position](s, e); ok {
			p.X += v.X
			p.Y += v.Y
		}
	}
}

// Spawn creates an avatar at x, y. It returns false when the store is full.
func Spawn(s *models.Store, x, y float32) (models.EntityID, bool) {
	e, ok := s.TryCreate()
	if !ok {
		return models.NoEntity, false
	}
	models.Set(s, e, Position{X: x, Y: y})
	models.Set(s, e, Health{Current: 100, Max: 100})
	return e, true
}
