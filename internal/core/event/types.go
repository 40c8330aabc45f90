package event

import "github.com/cartrace/engine/internal/core/ecs"

type EntitySpawned struct {
	Entity ecs.Entity
}

type EntityDespawned struct {
	Entity ecs.Entity
}
