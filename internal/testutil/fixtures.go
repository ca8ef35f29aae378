package testutil

// HelloWorldSource is the classic nested-loop greeting program. Its inner
// copy loop and backward scan give the optimizer real work on top of run
// collapsing, and its output is long enough to catch off-by-one slips in
// generated code.
const HelloWorldSource = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

// HelloWorldOutput is the exact byte sequence HelloWorldSource writes.
const HelloWorldOutput = "Hello World!\n"
