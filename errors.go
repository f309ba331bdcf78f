package conserver

import (
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

var (
	ErrRecordNotFound   = errors.New("record not found", j.C("ERR_6d982e73339f351a"))
	ErrChainNotFound    = errors.New("chain not found", j.C("ERR_4a1f0c2e7b9d3e58"))
	ErrLinkNotFound     = errors.New("link not found", j.C("ERR_8c3b5d17e02fa941"))
	ErrStorageNotFound  = errors.New("storage not found", j.C("ERR_e5d2a94b61c07f3d"))
	ErrQueueEmpty       = errors.New("queue empty", j.C("ERR_0b7e43c9d15a2f86"))
	ErrModuleResolution = errors.New("module could not be resolved", j.C("ERR_71f9c0d8a3e6b254"))
	ErrNoChains         = errors.New("no chain definitions loaded", j.C("ERR_93a6e1f40cb7d528"))
	ErrIngressConflict  = errors.New("ingress queue claimed by more than one chain", j.C("ERR_2d58b7c19e4af063"))
	ErrInvalidEnvelope  = errors.New("invalid queue envelope", j.C("ERR_c64f2a0b8e91d37e"))
	ErrEngineNotRunning = errors.New("engine is not running", j.C("ERR_5e0d9b3a72c14f68"))
	ErrEgressFailed     = errors.New("egress push failed", j.C("ERR_a83c61e5f2d94b07"))
)
