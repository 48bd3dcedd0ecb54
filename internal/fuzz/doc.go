// Package fuzztests houses Go fuzz harnesses for the schema loader and the
// resolver. Its goal is to smoke test robustness: arbitrary bytes must never
// panic, and resolving the same input twice must give the same answer.
//
// Назначение: загружать байты в FileSet и прогонять их через schema.Load и
// resolve.Resolve.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/source, internal/schema, internal/resolve,
// internal/diag, internal/layout, internal/testkit.

package fuzztests
