package main

import (
	"log"
	"os"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/noruhunter-go/internal/app"
	"jordanella.com/noruhunter-go/internal/gui"
	"jordanella.com/noruhunter-go/internal/window"
)

func main() {
	myApp := fyneapp.NewWithID("com.jordanella.noruhunter")
	myApp.Settings().SetTheme(&gui.AppTheme{})

	mainWindow := myApp.NewWindow("노루헌터")
	mainWindow.Resize(gui.DefaultWindowSize)
	mainWindow.SetMaster()

	// Settings, roster and history live next to where the tool is started
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to resolve working directory: %v", err)
	}

	ctx, err := app.New(app.DefaultPaths(wd), window.NewFinder(), gui.NewDialogPrompter(mainWindow))
	if err != nil {
		log.Printf("Failed to start: %v", err)
		showStartupError(mainWindow, err)
		mainWindow.ShowAndRun()
		return
	}
	defer func() {
		if err := ctx.Close(); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	controller := gui.NewController(ctx, myApp, mainWindow)
	mainWindow.SetMainMenu(controller.MainMenu())
	mainWindow.SetContent(controller.BuildUI())
	mainWindow.ShowAndRun()

	controller.Shutdown()
}

func showStartupError(w fyne.Window, err error) {
	w.SetContent(container.NewCenter(widget.NewLabel("프로그램을 시작할 수 없습니다.")))
	d := dialog.NewError(err, w)
	d.SetOnClosed(w.Close)
	d.Show()
}
