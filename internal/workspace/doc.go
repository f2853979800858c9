// Package workspace holds the in-memory model of everything the engine is
// told about the surrounding build: the root build and its included builds,
// their projects, the packaged artifacts available in the local repository,
// and the declared build items and steps.
//
// The model is loaded from HCL files (see Loader) and is read-only once
// loaded. It also acts as the dependency graph provider for the resolver:
// Candidate answers whether a coordinate is a local project or a packaged
// artifact with a file, and DependenciesOf lists its direct dependencies.
//
// # File Layout
//
//	build "app" {
//	  root = true
//	  project ":ext:runtime" {
//	    group   = "org.acme"
//	    name    = "acme-ext"
//	    version = "1.0"
//	    extension {
//	      deployment_module = ":ext:deployment"
//	    }
//	  }
//	}
//
//	artifact "g:a:1.0" {
//	  file         = "repo/a-1.0.jar"
//	  dependencies = ["g:b:1.0"]
//	}
//
//	requires = ["org.acme:acme-ext:1.0"]
//
//	item "feature" { multi = true }
//	step "register" {
//	  handler  = "emit"
//	  produces = ["feature"]
//	  phase    = "static-init"
//	}
package workspace
