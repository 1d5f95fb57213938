package tools

import "google.golang.org/genai"

// Parameter schemas for the four declared tools. These are the exact
// shapes advertised to the model; dispatch validation mirrors them.

func getFileDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        ToolGetFile,
		Description: "Reads file content from project by filename and optional line range",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"fileName":  {Type: genai.TypeString, Description: "Filename to read, e.g. page.tsx"},
				"lineStart": {Type: genai.TypeNumber, Description: "Starting line number"},
				"lineEnd":   {Type: genai.TypeNumber, Description: "Ending line number"},
			},
			Required: []string{"fileName"},
		},
	}
}

func editFileDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        ToolEditFile,
		Description: "Edits the file with the given code",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"fileName":  {Type: genai.TypeString, Description: "Filename to edit, e.g. page.tsx"},
				"lineStart": {Type: genai.TypeNumber, Description: "Starting line number"},
				"lineEnd":   {Type: genai.TypeNumber, Description: "Ending line number"},
				"code":      {Type: genai.TypeString, Description: "Code replacing the specified line range, or the whole file when no range is given"},
			},
			Required: []string{"fileName", "code"},
		},
	}
}

func imageGenDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        ToolImageGen,
		Description: "Generates an image using AI",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"prompt":         {Type: genai.TypeString, Description: "Prompt for image generation"},
				"filename":       {Type: genai.TypeString, Description: "Filename for the generated image, chosen to fit the request"},
				"includedInFile": {Type: genai.TypeBoolean, Description: "Whether the image is meant to be referenced from a source file"},
			},
			Required: []string{"prompt", "filename", "includedInFile"},
		},
	}
}

func executeCommandDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        ToolExecuteCommand,
		Description: "Executes a terminal command and returns the output in real-time",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"command":      {Type: genai.TypeString, Description: "Command to execute"},
				"isBackground": {Type: genai.TypeBoolean, Description: "Whether to run the command in background"},
			},
			Required: []string{"command"},
		},
	}
}
