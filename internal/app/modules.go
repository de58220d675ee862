package app

import (
	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/specialistvlad/shakegrid/internal/engine/remote"
	"github.com/specialistvlad/shakegrid/internal/engine/settle"
)

// coreModules is the definitive list of all engines that are compiled into
// the shakegrid binary.
var coreModules = []engine.Module{
	&settle.Module{},
	&remote.Module{},
}
