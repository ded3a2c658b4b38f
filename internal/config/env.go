package config

import "os"

// WorkspaceRoot resolves the build workspace root: FAB_WORKSPACE if set,
// otherwise fallback under the current directory.
func WorkspaceRoot(fallback string) string {
	if v := os.Getenv("FAB_WORKSPACE"); v != "" {
		return v
	}
	return fallback
}

// FortranCompiler resolves the Fortran compiler binary, preferring
// OMPI_FC (the MPI compiler wrapper environment variable a Jules or UM
// run configuration would read) then GFORTRAN, then the given fallback.
func FortranCompiler(fallback string) string {
	if v := os.Getenv("OMPI_FC"); v != "" {
		return v
	}
	if v := os.Getenv("GFORTRAN"); v != "" {
		return v
	}
	return fallback
}

// CCompiler resolves the C compiler binary, preferring the CC
// environment variable over the given fallback.
func CCompiler(fallback string) string {
	if v := os.Getenv("CC"); v != "" {
		return v
	}
	return fallback
}

// GComBuildDir resolves the GCOM_BUILD environment variable, used to
// locate a pre-built GCOM library tree to link against when building a
// model that depends on it.
func GComBuildDir() (string, bool) {
	v := os.Getenv("GCOM_BUILD")
	return v, v != ""
}
