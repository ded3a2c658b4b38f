package analysis

import "github.com/metoffice/fab-go/internal/types"

// intrinsicModules are Fortran modules provided by the compiler, never
// resolved to a source file: they are filtered out of symbol_deps.
var intrinsicModules = types.NewSymbolSet(
	"iso_c_binding",
	"iso_fortran_env",
	"ieee_arithmetic",
	"ieee_exceptions",
	"ieee_features",
	"omp_lib",
	"openacc",
)

// intrinsicProcedures are Fortran intrinsic functions/subroutines, never
// resolved to a source file.
var intrinsicProcedures = types.NewSymbolSet(
	"abs", "achar", "acos", "adjustl", "adjustr", "aimag", "aint", "all",
	"allocated", "anint", "any", "asin", "associated", "atan", "atan2",
	"bit_size", "btest", "ceiling", "char", "cmplx", "conjg", "cos",
	"cosh", "count", "cpu_time", "cshift", "date_and_time", "dble",
	"digits", "dim", "dot_product", "dprod", "eoshift", "epsilon",
	"exp", "exponent", "floor", "fraction", "huge", "iachar", "iand",
	"ibclr", "ibits", "ibset", "ichar", "ieor", "index", "int", "ior",
	"ishft", "ishftc", "kind", "lbound", "len", "len_trim", "lge",
	"lgt", "lle", "llt", "log", "log10", "logical", "matmul", "max",
	"maxexponent", "maxloc", "maxval", "merge", "min", "minexponent",
	"minloc", "minval", "mod", "modulo", "move_alloc", "mvbits",
	"nearest", "nint", "not", "pack", "precision", "present",
	"product", "radix", "random_number", "random_seed", "range",
	"real", "repeat", "reshape", "rrspacing", "scale", "scan",
	"selected_int_kind", "selected_real_kind", "set_exponent", "shape",
	"sign", "sin", "sinh", "size", "spacing", "spread", "sqrt", "sum",
	"system_clock", "tan", "tanh", "tiny", "transfer", "transpose",
	"trim", "ubound", "unpack", "verify", "c_loc", "c_associated",
	"c_f_pointer", "c_f_procpointer", "get_command_argument",
	"get_environment_variable", "error_stop", "allocate", "deallocate",
)

func isIntrinsicModule(sym types.Symbol) bool    { return intrinsicModules.Has(sym) }
func isIntrinsicProcedure(sym types.Symbol) bool { return intrinsicProcedures.Has(sym) }
