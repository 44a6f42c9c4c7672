package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_sealpost() {
    local cur prev words cword
    _init_completion || return

    local commands="init seal open add show ls edit rm export diff rotate passwd status compact keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        add|edit)
            case "$prev" in
                --body-file)
                    _filedir
                    return
                    ;;
            esac
            COMPREPLY=($(compgen -W "--title --body --body-file --author --tag" -- "$cur"))
            ;;
        show)
            COMPREPLY=($(compgen -W "--json" -- "$cur"))
            ;;
        seal)
            COMPREPLY=($(compgen -W "--json" -- "$cur"))
            ;;
        export|diff)
            _filedir
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _sealpost sealpost
`

const zshCompletion = `#compdef sealpost

_sealpost() {
    local -a commands
    commands=(
        'init:Create a sealpost store'
        'seal:Encrypt text with the configured secrets'
        'open:Decrypt an envelope with the configured secrets'
        'add:Add a post'
        'show:Show a decrypted post'
        'ls:List posts'
        'edit:Change fields of a post'
        'rm:Remove posts'
        'export:Export decrypted posts as JSON'
        'diff:Compare a post body with a local file'
        'rotate:Re-seal every post under a new salt'
        'passwd:Change the store passphrase'
        'status:Show store status'
        'compact:Compact the store file'
        'keyring:Manage passphrase in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'sealpost commands' commands
            ;;
        args)
            case "${words[2]}" in
                add|edit)
                    _arguments \
                        '--title[Post title]:title:' \
                        '--body[Post body]:body:' \
                        '--body-file[Read body from file]:file:_files' \
                        '--author[Post author]:author:' \
                        '*--tag[Post tag]:tag:'
                    ;;
                show|seal)
                    _arguments '--json[Print JSON]'
                    ;;
                export|diff)
                    _files
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'sealpost commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_sealpost "$@"
`

const fishCompletion = `# sealpost fish completions

set -l commands init seal open add show ls edit rm export diff rotate passwd status compact keyring help completion

complete -c sealpost -f

# Commands
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a store'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a seal -d 'Encrypt text'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a open -d 'Decrypt an envelope'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a add -d 'Add a post'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a show -d 'Show a post'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List posts'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a edit -d 'Change a post'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove posts'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a export -d 'Export posts'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare post with file'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a rotate -d 'Rotate the key'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change passphrase'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show store status'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact store'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage passphrase in OS keyring'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c sealpost -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# add/edit flags
complete -c sealpost -n "__fish_seen_subcommand_from add edit" -l title -r -d 'Post title'
complete -c sealpost -n "__fish_seen_subcommand_from add edit" -l body -r -d 'Post body'
complete -c sealpost -n "__fish_seen_subcommand_from add edit" -l body-file -r -F -d 'Read body from file'
complete -c sealpost -n "__fish_seen_subcommand_from add edit" -l author -r -d 'Post author'
complete -c sealpost -n "__fish_seen_subcommand_from add edit" -l tag -r -d 'Post tag'
complete -c sealpost -n "__fish_seen_subcommand_from show seal" -l json -d 'Print JSON'
complete -c sealpost -n "__fish_seen_subcommand_from export diff" -F

# keyring subcommands
complete -c sealpost -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c sealpost -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c sealpost -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
