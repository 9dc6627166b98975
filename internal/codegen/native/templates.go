package native

// cmakeListsTemplate builds the generated kernel source into a shared
// library named by %s (the kernel's fingerprint-derived artifact name).
// Grounded on the reference build's own CMake invocation (§ compile_cpp):
// configure once per kernel, build Release, link a single .so.
const cmakeListsTemplate = `cmake_minimum_required(VERSION 3.16)
project(dslgen_kernel CXX)

set(CMAKE_CXX_STANDARD 17)
set(CMAKE_CXX_STANDARD_REQUIRED ON)
if(NOT CMAKE_BUILD_TYPE)
  set(CMAKE_BUILD_TYPE Release)
endif()

add_library(kernel SHARED kernel.cpp)
set_target_properties(kernel PROPERTIES OUTPUT_NAME "%s" PREFIX "")
`

// clangFormatTemplate keeps the generated source readable for a human
// debugging a kernel; format_cpp in the reference implementation treats
// clang-format the same way, as a no-op when it isn't installed.
const clangFormatTemplate = `BasedOnStyle: Google
IndentWidth: 2
ColumnLimit: 100
`
