package generator

var BuildUserPrompt = buildUserPrompt
