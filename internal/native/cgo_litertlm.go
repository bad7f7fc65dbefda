//go:build litertlm

package native

// cgo link directives for the LiteRT-LM C API.
// - We set an rpath of $ORIGIN so the runtime loader finds libengine.so in the
//   same directory as the built Go binary (./bin).
// - -L${SRCDIR}/../../bin lets the linker find libengine.so at link time;
//   copy it there from bazel-bin/c after `bazel build //c:engine`.
// - Headers are expected under third_party/litert-lm (the c/engine.h layout).
// - libengine is C++ inside, so libstdc++ (libc++ on darwin) must be linked.

/*
#cgo CFLAGS: -I${SRCDIR}/../../third_party/litert-lm
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lengine
#cgo linux LDFLAGS: -lstdc++
#cgo darwin LDFLAGS: -lc++
#include <stdlib.h>
#include "c/engine.h"
*/
import "C"

import "unsafe"

// Built reports whether this binary links the native library.
const Built = true

type cAPI struct{}

// Default returns the cgo-backed API. It holds no state of its own.
func Default() (API, error) {
	return cAPI{}, nil
}

func (cAPI) EngineSettingsCreate(modelPath, backend string) Handle {
	cPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cPath))
	cBackend := C.CString(backend)
	defer C.free(unsafe.Pointer(cBackend))
	return Handle(unsafe.Pointer(C.litert_lm_engine_settings_create(cPath, cBackend)))
}

func (cAPI) EngineSettingsDelete(settings Handle) {
	C.litert_lm_engine_settings_delete((*C.LiteRtLmEngineSettings)(unsafe.Pointer(settings)))
}

func (cAPI) EngineCreate(settings Handle) Handle {
	return Handle(unsafe.Pointer(C.litert_lm_engine_create((*C.LiteRtLmEngineSettings)(unsafe.Pointer(settings)))))
}

func (cAPI) EngineDelete(engine Handle) {
	C.litert_lm_engine_delete((*C.LiteRtLmEngine)(unsafe.Pointer(engine)))
}

func (cAPI) EngineCreateSession(engine Handle) Handle {
	return Handle(unsafe.Pointer(C.litert_lm_engine_create_session((*C.LiteRtLmEngine)(unsafe.Pointer(engine)))))
}

func (cAPI) SessionDelete(session Handle) {
	C.litert_lm_session_delete((*C.LiteRtLmSession)(unsafe.Pointer(session)))
}

// SessionGenerateContent copies every chunk into C memory for the duration of
// the call: the InputData array itself must not point into Go memory.
func (cAPI) SessionGenerateContent(session Handle, inputs []Input) Handle {
	if len(inputs) == 0 {
		return nil
	}
	n := len(inputs)
	arr := (*C.InputData)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.InputData{}))))
	defer C.free(unsafe.Pointer(arr))
	chunks := unsafe.Slice(arr, n)
	for i, in := range inputs {
		// C.CBytes always allocates, even for an empty slice.
		data := C.CBytes(in.Data)
		defer C.free(data)
		chunks[i] = C.InputData{
			_type: inputKindToC(in.Kind),
			data:  data,
			size:  C.size_t(len(in.Data)),
		}
	}
	return Handle(unsafe.Pointer(C.litert_lm_session_generate_content(
		(*C.LiteRtLmSession)(unsafe.Pointer(session)), arr, C.size_t(n))))
}

func (cAPI) SessionBenchmarkInfo(session Handle) Handle {
	return Handle(unsafe.Pointer(C.litert_lm_session_get_benchmark_info((*C.LiteRtLmSession)(unsafe.Pointer(session)))))
}

func (cAPI) ResponsesTextAt(responses Handle, index int) (string, bool) {
	p := C.litert_lm_responses_get_response_text_at((*C.LiteRtLmResponses)(unsafe.Pointer(responses)), C.int(index))
	if p == nil {
		return "", false
	}
	// GoString copies; p stays owned by the responses buffer.
	return C.GoString(p), true
}

func (cAPI) ResponsesDelete(responses Handle) {
	C.litert_lm_responses_delete((*C.LiteRtLmResponses)(unsafe.Pointer(responses)))
}

func (cAPI) BenchmarkTimeToFirstToken(info Handle) float64 {
	return float64(C.litert_lm_benchmark_info_get_time_to_first_token((*C.LiteRtLmBenchmarkInfo)(unsafe.Pointer(info))))
}

func (cAPI) BenchmarkNumPrefillTurns(info Handle) int {
	return int(C.litert_lm_benchmark_info_get_num_prefill_turns((*C.LiteRtLmBenchmarkInfo)(unsafe.Pointer(info))))
}

func (cAPI) BenchmarkNumDecodeTurns(info Handle) int {
	return int(C.litert_lm_benchmark_info_get_num_decode_turns((*C.LiteRtLmBenchmarkInfo)(unsafe.Pointer(info))))
}

func (cAPI) BenchmarkInfoDelete(info Handle) {
	C.litert_lm_benchmark_info_delete((*C.LiteRtLmBenchmarkInfo)(unsafe.Pointer(info)))
}

// InputText is the only kind the Go side produces today.
func inputKindToC(InputKind) C.InputDataType {
	return C.InputDataType(C.kInputText)
}
