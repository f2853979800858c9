package app

import (
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/specialistvlad/extforge/modules/collect"
	"github.com/specialistvlad/extforge/modules/emit"
	"github.com/specialistvlad/extforge/modules/env_vars"
	"github.com/specialistvlad/extforge/modules/fail"
	"github.com/specialistvlad/extforge/modules/http_request"
	"github.com/specialistvlad/extforge/modules/print"
	"github.com/specialistvlad/extforge/modules/s3"
)

// coreModules is the definitive list of all handler modules that are
// compiled into the extforge binary.
var coreModules = []handlers.Module{
	&emit.Module{},
	&collect.Module{},
	&env_vars.Module{},
	&print.Module{},
	&fail.Module{},
	&http_request.Module{},
	&s3.Module{},
}
